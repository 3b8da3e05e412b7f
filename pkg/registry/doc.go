// Package registry holds flow definitions by id and application actions by name.
//
// A Registry is the engine.FlowDefinitionLocator used by executors to launch
// flows and to reattach definitions when restoring snapshots. Its action
// table is what YAML flow definitions refer to when they name an action.
package registry
