/*
Package http exposes flows over HTTP with a chi router.

A flow is addressed by its definition id. Requests without an execution key
launch a new execution; requests carrying one resume it:

	GET  /flows/{flowId}                    launch, query parameters are the flow input
	POST /flows/{flowId}                    launch, form values are the flow input
	GET  /flows/{flowId}?execution=e1s2     refresh the paused view
	POST /flows/{flowId}?execution=e1s2     signal the _eventId form value

Paused executions either render their view as JSON or redirect (303 See
Other) to their execution URL, following the POST-redirect-GET pattern.
Ajax requests receive redirects as JSON instead of a 303 status. Expired or
unknown execution keys answer 410 Gone with code flow_execution_expired.
*/
package http
