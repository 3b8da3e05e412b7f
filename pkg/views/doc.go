// Package views provides a model-driven engine.ViewFactory.
//
// A model view renders by handing the host a view id and a model built from
// the request scopes. On a postback it reads the user event from the
// "_eventId" (or "_eventId_<id>") request parameter, binds the remaining
// parameters onto a model object and validates it before signaling the event.
package views
