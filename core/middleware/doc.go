// Package middleware contains HTTP middleware for the Fiber application.
//
// It provides cross-cutting concerns that sit between the request and the handler.
//
// # Components
//
//   - auth: API key validation (X-API-Key). Disabled when no key is configured.
//   - rayid: generates a unique request id (RayID) for every incoming request,
//     injecting it into the context and response headers for tracing.
//   - errorhandler: the application error handler, mapping error kinds from
//     core/apperror to HTTP status codes (404, 409, 400, 502, 500).
//
// These middleware components are registered globally in the start command.
package middleware
