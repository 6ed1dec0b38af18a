// Package flow implements the conversational routing core: deterministic
// text normalization, option and service matching, the per-conversation
// state table, the tenant flow router and the built-in agency flow.
package flow
