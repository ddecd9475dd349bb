// Package server implements the HTTP front of the ahagon webhook gateway.
//
// This package provides:
//   - GitHub and Travis CI webhook endpoints running the dispatch pipeline
//     (authenticate, decode, classify, route to the handler registry)
//   - Request lifecycle middleware: request ids, panic recovery, a per-request
//     deadline, access logging, an optional per-IP rate limit and a body-size cap
//   - Static index/favicon assets, a health endpoint and a fixed 404 responder
//
// The server integrates with other packages:
//   - internal/config: repository registry and web settings
//   - internal/notifier: signature/token checks and payload decoding
//   - internal/handler: event handler registry
//   - internal/history: SQLite-based delivery history
//
// Response statuses:
//   - 400 for missing headers, undecodable bodies and unknown event kinds
//   - 403 for signature or token mismatches
//   - 413 for bodies over the configured cap
//   - 500 when a handler fails
package server
