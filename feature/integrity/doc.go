// Package integrity provides health checks for the diary service.
//
// # Checks Provided
//
//   - Schema: compares the diary tables with the GORM models (columns and
//     explicit column types).
//   - Remote: lists the configured remote once and reports how many dates it
//     holds. For an s3 remote the bucket itself is also checked and can be
//     created on request.
//   - Episodes: counts conflict episodes still waiting for a resolution.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/remote : Runs the remote check (supports ?fix=true for s3).
//   - GET /integrity/episodes : Reports pending episodes.
package integrity
