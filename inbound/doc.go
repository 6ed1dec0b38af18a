// Package inbound turns provider webhook deliveries into conversation
// events: tenant resolution, contact/conversation mapping and flow routing.
package inbound
