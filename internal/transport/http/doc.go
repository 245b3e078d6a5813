// Package http contains the chi HTTP handlers for both processes: the
// authority's validate endpoint, and the deployed instance's license status,
// update, health and metrics surfaces. Handlers stay thin: they bind and
// validate requests, call the service layer, and render structured responses.
package http
