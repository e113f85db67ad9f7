// Package driving defines the interfaces through which surfaces (HTTP,
// CLI, TUI, watcher) call IN to the core services.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
package driving
