package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// ViewStateConfig configures a view state.
type ViewStateConfig struct {
	ID            string
	ViewFactory   ViewFactory
	EntryActions  []Action
	RenderActions []Action
	ExitActions   []Action
	Transitions   []*Transition
	Variables     []ViewVariable

	// Redirect overrides the execution's redirect-on-pause setting for this state.
	Redirect *bool

	// Popup shows the view in a popup window; it implies a redirect.
	Popup bool

	// History applies when the state is exited. Defaults to preserve.
	History domain.History

	ExceptionHandlers []ExceptionHandler
	Attributes        domain.Attributes
}

// ViewState pauses the execution and lets the user participate in the flow.
type ViewState struct {
	stateCore
	transitionable
	viewFactory   ViewFactory
	renderActions *ActionList
	variables     []ViewVariable
	redirect      *bool
	popup         bool
	history       domain.History
}

// NewViewState creates a view state and adds it to flow.
func NewViewState(flow *Flow, cfg ViewStateConfig) (*ViewState, error) {
	if cfg.ViewFactory == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoViewFactory, cfg.ID)
	}
	history := cfg.History
	if history == "" {
		history = domain.HistoryPreserve
	}
	var redirect *bool
	if cfg.Redirect != nil {
		r := *cfg.Redirect
		redirect = &r
	}
	if cfg.Popup {
		r := true
		redirect = &r
	}
	s := &ViewState{
		stateCore:      newCore(cfg.ID, cfg.EntryActions, cfg.ExceptionHandlers, cfg.Attributes),
		transitionable: newTransitionable(cfg.Transitions, cfg.ExitActions),
		viewFactory:    cfg.ViewFactory,
		renderActions:  NewActionList(cfg.RenderActions...),
		variables:      append([]ViewVariable(nil), cfg.Variables...),
		redirect:       redirect,
		popup:          cfg.Popup,
		history:        history,
	}
	if err := register(flow, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ViewFactory returns the state's view factory.
func (s *ViewState) ViewFactory() ViewFactory { return s.viewFactory }

// RenderActions returns the actions executed before each render.
func (s *ViewState) RenderActions() *ActionList { return s.renderActions }

// History returns the default history policy.
func (s *ViewState) History() domain.History { return s.history }

// Redirect returns the explicit redirect setting, if any.
func (s *ViewState) Redirect() (bool, bool) {
	if s.redirect == nil {
		return false, false
	}
	return *s.redirect, true
}

// Popup reports whether the view is shown in a popup.
func (s *ViewState) Popup() bool { return s.popup }

// TransitionOn returns the transition, local or global, that would handle ev.
func (s *ViewState) TransitionOn(rc RequestContext, ev *domain.Event) (*Transition, error) {
	return s.flow.transitionFor(s, eventContext{RequestContext: rc, event: ev})
}

func (s *ViewState) doEnter(rc RequestControlContext) error {
	if err := rc.AssignFlowExecutionKey(); err != nil {
		return err
	}
	ext := rc.ExternalContext()
	if ext.IsResponseComplete() {
		if ext.Response().Kind != domain.ResponseFlowExecutionRedirect {
			rc.FlashScope().Clear()
		}
		return nil
	}
	if s.shouldRedirect(rc) {
		ext.RequestFlowExecutionRedirect()
		if s.popup {
			ext.RequestRedirectInPopup()
		}
		return nil
	}
	view, err := s.viewFactory.GetView(rc)
	if err != nil {
		return err
	}
	rc.SetCurrentView(view)
	return s.render(rc, view)
}

func (s *ViewState) resume(rc RequestControlContext) error {
	if err := s.restoreVariables(rc); err != nil {
		return err
	}
	view, err := s.viewFactory.GetView(rc)
	if err != nil {
		return err
	}
	rc.SetCurrentView(view)

	if !view.UserEventQueued() {
		return s.refresh(rc, view)
	}
	if err := view.ProcessUserEvent(); err != nil {
		return err
	}
	if view.HasFlowEvent() {
		exited, err := rc.HandleEvent(view.FlowEvent())
		if err != nil || exited {
			return err
		}
	}

	ext := rc.ExternalContext()
	if ext.IsResponseComplete() || !ext.IsResponseAllowed() {
		return nil
	}
	if ext.IsAjaxRequest() {
		return s.render(rc, view)
	}
	if s.shouldRedirectInSameState(rc) {
		if err := rc.UpdateCurrentFlowExecutionSnapshot(); err != nil {
			return err
		}
		ext.RequestFlowExecutionRedirect()
		if s.popup {
			ext.RequestRedirectInPopup()
		}
		return nil
	}
	return s.render(rc, view)
}

// refresh re-renders the view, e.g. after a redirect or a browser refresh.
func (s *ViewState) refresh(rc RequestControlContext, view View) error {
	ext := rc.ExternalContext()
	if ext.IsResponseComplete() || !ext.IsResponseAllowed() {
		return nil
	}
	return s.render(rc, view)
}

func (s *ViewState) render(rc RequestControlContext, view View) error {
	rc.ViewRendering(view)
	if err := s.renderActions.Execute(rc); err != nil {
		return err
	}
	if err := view.Render(); err != nil {
		return err
	}
	rc.FlashScope().Clear()
	rc.ExternalContext().RecordResponseComplete()
	rc.ViewRendered(view)
	return nil
}

func (s *ViewState) exit(rc RequestControlContext) error {
	if err := s.exitActions.Execute(rc); err != nil {
		return err
	}
	if err := s.updateHistory(rc); err != nil {
		return err
	}
	s.destroyVariables(rc)
	rc.SetCurrentView(nil)
	return nil
}

// updateHistory applies the history policy. The transition being executed may override the state default.
func (s *ViewState) updateHistory(rc RequestControlContext) error {
	history := s.history
	if t := rc.CurrentTransition(); t != nil {
		if h, ok := t.History(); ok {
			history = h
		}
	}
	switch history {
	case domain.HistoryDiscard:
		return rc.RemoveCurrentFlowExecutionSnapshot()
	case domain.HistoryInvalidate:
		return rc.RemoveAllFlowExecutionSnapshots()
	}
	if v := rc.CurrentView(); v != nil {
		return v.SaveState()
	}
	return nil
}

func (s *ViewState) shouldRedirect(rc RequestControlContext) bool {
	if s.redirect != nil {
		return *s.redirect
	}
	return rc.RedirectOnPause()
}

func (s *ViewState) shouldRedirectInSameState(rc RequestControlContext) bool {
	if s.redirect != nil {
		return *s.redirect
	}
	return rc.RedirectInSameState()
}

func (s *ViewState) createVariables(rc RequestControlContext) error {
	for _, v := range s.variables {
		value, err := v.Create(rc)
		if err != nil {
			return fmt.Errorf("creating view variable %q: %w", v.Name, err)
		}
		rc.ViewScope().Put(v.Name, value)
	}
	return nil
}

func (s *ViewState) restoreVariables(rc RequestControlContext) error {
	scope := rc.ViewScope()
	for _, v := range s.variables {
		if !scope.Contains(v.Name) {
			value, err := v.Create(rc)
			if err != nil {
				return fmt.Errorf("creating view variable %q: %w", v.Name, err)
			}
			scope.Put(v.Name, value)
			continue
		}
		if v.Restore != nil {
			value, err := v.Restore(scope.Get(v.Name), rc)
			if err != nil {
				return fmt.Errorf("restoring view variable %q: %w", v.Name, err)
			}
			scope.Put(v.Name, value)
		}
	}
	return nil
}

func (s *ViewState) destroyVariables(rc RequestControlContext) {
	for _, v := range s.variables {
		rc.ViewScope().Remove(v.Name)
	}
}
