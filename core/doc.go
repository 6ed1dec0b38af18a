// Package core defines the domain types and contracts shared by the
// go-botflow runtime: inbound events, conversation snapshots, the flow
// registry, collaborator store interfaces, and the configuration and error
// envelopes used across packages.
package core
