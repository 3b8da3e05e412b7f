package views

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// MessagesKey is the flash scope key holding binding and validation messages.
const MessagesKey = "messages"

// Factory is an engine.ViewFactory for model views.
type Factory struct {
	viewID   string
	model    *expression.Expression
	modelRef expression.Path
	fields   map[string]bool
	rules    map[string]any
	validate *validator.Validate
}

// Option configures a Factory.
type Option func(*Factory)

// WithModel names the model object that postbacks bind to, e.g. "booking" or
// "flowScope.booking". A missing map model is created in flow scope.
func WithModel(path string) Option {
	return func(f *Factory) {
		f.model = expression.MustParse(path)
		f.modelRef = expression.MustParsePath(path).WithDefaultScope(expression.FlowScope)
	}
}

// WithFields restricts binding to the named request parameters.
func WithFields(names ...string) Option {
	return func(f *Factory) {
		if f.fields == nil {
			f.fields = make(map[string]bool)
		}
		for _, n := range names {
			f.fields[n] = true
		}
	}
}

// WithRules sets validator rules for map models, keyed by field ("required,email").
func WithRules(rules map[string]string) Option {
	return func(f *Factory) {
		if f.rules == nil {
			f.rules = make(map[string]any)
		}
		for k, v := range rules {
			f.rules[k] = v
		}
	}
}

// WithValidator replaces the validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(f *Factory) { f.validate = v }
}

// New creates a view factory for viewID.
func New(viewID string, opts ...Option) *Factory {
	f := &Factory{viewID: viewID, validate: validator.New()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ViewID returns the view id handed to the host.
func (f *Factory) ViewID() string { return f.viewID }

// GetView implements engine.ViewFactory.
func (f *Factory) GetView(rc engine.RequestContext) (engine.View, error) {
	return &View{factory: f, rc: rc}, nil
}

// View is a model view bound to one request.
type View struct {
	factory *Factory
	rc      engine.RequestContext
	event   *domain.Event
}

// Render asks the host to render the view with the current model.
func (v *View) Render() error {
	v.rc.ExternalContext().RenderView(v.factory.viewID, Model(v.rc))
	return nil
}

// UserEventQueued implements engine.View.
func (v *View) UserEventQueued() bool {
	return EventID(v.rc.RequestParameters()) != ""
}

// ProcessUserEvent binds and validates the request parameters unless the
// matching transition disables it with bind=false or validate=false.
func (v *View) ProcessUserEvent() error {
	params := v.rc.RequestParameters()
	ev := domain.NewEvent(v.factory.viewID, EventID(params))
	bind, validate := true, true
	if vs, ok := v.rc.CurrentState().(*engine.ViewState); ok {
		t, err := vs.TransitionOn(v.rc, ev)
		if err != nil {
			return err
		}
		if t != nil {
			bind = flag(t.Attribute(domain.TransitionBind), true)
			validate = flag(t.Attribute(domain.TransitionValidate), bind)
		}
	}
	if bind && v.factory.model != nil {
		messages, err := v.bind(params, validate)
		if err != nil {
			return err
		}
		if len(messages) > 0 {
			v.rc.FlashScope().Put(MessagesKey, messages)
			return nil
		}
	}
	v.event = ev
	return nil
}

// HasFlowEvent reports whether a postback produced an event for the flow.
func (v *View) HasFlowEvent() bool { return v.event != nil }

// FlowEvent implements engine.View.
func (v *View) FlowEvent() *domain.Event { return v.event }

// SaveState implements engine.View. Model views keep no state outside the scopes.
func (v *View) SaveState() error { return nil }

func (v *View) bind(params domain.Attributes, validate bool) (map[string]string, error) {
	model, err := v.resolveModel()
	if err != nil {
		return nil, err
	}
	data := make(map[string]any)
	for k, val := range params {
		if strings.HasPrefix(k, domain.ParamEventID) || k == domain.ParamExecution {
			continue
		}
		if v.factory.fields != nil && !v.factory.fields[k] {
			continue
		}
		data[k] = val
	}

	switch m := model.(type) {
	case domain.Attributes:
		for k, val := range data {
			m[k] = val
		}
		if validate && len(v.factory.rules) > 0 {
			return mapMessages(v.factory.validate.ValidateMap(map[string]any(m), v.factory.rules)), nil
		}
		return nil, nil
	case map[string]any:
		for k, val := range data {
			m[k] = val
		}
		if validate && len(v.factory.rules) > 0 {
			return mapMessages(v.factory.validate.ValidateMap(m, v.factory.rules)), nil
		}
		return nil, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           model,
		WeaklyTypedInput: true,
		TagName:          "json",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("model %s cannot be bound: %w", v.factory.model, err)
	}
	if err := dec.Decode(data); err != nil {
		return map[string]string{"": err.Error()}, nil
	}
	if !validate || !isStruct(model) {
		return nil, nil
	}
	if err := v.factory.validate.Struct(model); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			messages := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				messages[fe.Field()] = fe.Tag()
			}
			return messages, nil
		}
		return nil, err
	}
	return nil, nil
}

func (v *View) resolveModel() (any, error) {
	model, err := v.factory.model.Eval(engine.Env(v.rc))
	if err != nil {
		return nil, err
	}
	if model != nil {
		return model, nil
	}
	created := domain.NewAttributes()
	if err := v.factory.modelRef.Assign(engine.Scopes(v.rc), created); err != nil {
		return nil, err
	}
	return created, nil
}

// EventID extracts the user event from request parameters: the value of
// "_eventId", or the suffix of a "_eventId_<id>" parameter name.
func EventID(params domain.Attributes) string {
	if id := params.GetString(domain.ParamEventID); id != "" {
		return id
	}
	prefix := domain.ParamEventID + "_"
	for _, k := range params.Keys() {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) {
			return k[len(prefix):]
		}
	}
	return ""
}

// Model builds the render model: the flattened scopes plus the execution key.
func Model(rc engine.RequestContext) domain.Attributes {
	model := domain.NewAttributes()
	for _, scope := range []domain.Attributes{rc.ConversationScope(), rc.FlowScope(), rc.ViewScope(), rc.FlashScope(), rc.RequestScope()} {
		for k, v := range scope {
			model[k] = v
		}
	}
	model[expression.FlowExecutionKey] = rc.FlowExecutionKey()
	return model
}

func flag(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "false"
	}
	return def
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

func mapMessages(errs map[string]any) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	messages := make(map[string]string, len(errs))
	for field, err := range errs {
		switch e := err.(type) {
		case validator.ValidationErrors:
			if len(e) > 0 {
				messages[field] = e[0].Tag()
				continue
			}
		case validator.FieldError:
			messages[field] = e.Tag()
			continue
		}
		messages[field] = fmt.Sprint(err)
	}
	return messages
}
