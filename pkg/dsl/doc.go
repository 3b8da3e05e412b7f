/*
Package dsl provides a fluent Go builder for webflow flow definitions.

It is the programmatic counterpart of the YAML flow format: states are added in
order (the first one is the start state unless StartAt says otherwise), and
expression or mapping errors are collected and reported together by Build.

Example usage:

	b := dsl.New("booking").
		Var("booking", func(engine.RequestContext) (any, error) { return domain.NewAttributes(), nil }).
		Output(dsl.M{From: "booking.id", To: "bookingId"})

	b.View("enterDetails", "detailsView").
		Model("booking").
		On("submit", "review")

	b.View("review", "reviewView").
		On("confirm", "confirmed").
		On("revise", "enterDetails", engine.WithAttribute(domain.TransitionBind, false))

	b.End("confirmed")

	flow, err := b.Build()
*/
package dsl
