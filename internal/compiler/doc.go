// Package compiler turns YAML flow documents into engine flows.
//
// A document is parsed into a dto.FlowDefinition and compiled through the
// dsl builder, so YAML and Go defined flows share one construction path.
// Named actions are resolved through an ActionResolver, usually the
// registry the compiled flows are registered in.
package compiler
