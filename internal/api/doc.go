// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between the web app and
// the application services in internal/service.
package api
