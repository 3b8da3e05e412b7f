package engine

// FlowVariable is created in flow scope when its flow session starts.
type FlowVariable struct {
	Name   string
	Create func(rc RequestContext) (any, error)
}

// ViewVariable lives in view scope while its view state is active.
// Restore, when set, rehydrates the stored value on each resume.
type ViewVariable struct {
	Name    string
	Create  func(rc RequestContext) (any, error)
	Restore func(value any, rc RequestContext) (any, error)
}

// Value returns a creator that copies a constant. Maps and slices are shared.
func Value(v any) func(RequestContext) (any, error) {
	return func(RequestContext) (any, error) { return v, nil }
}
