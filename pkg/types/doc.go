// Package types defines the shared Go types of the synthetics default-alert
// server: rule kinds, rules and their actions, action connectors and the
// dynamic settings that select which connectors a default rule notifies.
//
// These are the canonical in-memory representations; each registry maps them
// to and from its own storage format.
package types
