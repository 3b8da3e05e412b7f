package domain

// Execution attribute names understood by the engine.
const (
	// AttrAlwaysRedirectOnPause makes every view state issue a redirect before rendering.
	AttrAlwaysRedirectOnPause = "alwaysRedirectOnPause"

	// AttrRedirectInSameState controls whether a postback that stays in the same view state redirects.
	// When unset it falls back to AttrAlwaysRedirectOnPause.
	AttrRedirectInSameState = "redirectInSameState"
)

// Transition attribute names.
const (
	TransitionHistory  = "history"
	TransitionBind     = "bind"
	TransitionValidate = "validate"
)

// Request parameter names.
const (
	// ParamEventID carries the user event of a postback. A parameter named
	// "_eventId_<id>" is accepted as well, which suits submit buttons.
	ParamEventID = "_eventId"

	// ParamExecution carries the flow execution key.
	ParamExecution = "execution"
)

// Flash scope keys populated when an exception handler recovers from a failure.
const (
	FlashFlowExecutionException = "flowExecutionException"
	FlashRootCauseException     = "rootCauseException"
)

// Well known event ids.
const (
	EventSuccess = "success"
	EventError   = "error"
	EventYes     = "yes"
	EventNo      = "no"
	EventNull    = "null"
)
