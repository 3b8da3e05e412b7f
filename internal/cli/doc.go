// Package cli wires configuration, flow definitions, stores and the executor
// for the webflow command.
package cli
