// Package server provides the HTTP surface of an edgecam service: a Gin
// engine behind an h2c-capable net/http server, run as a lifecycle
// component.
//
// Server-level middleware (server/middleware) wraps every request:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin headers and preflight
//   - RequestLogger: access log, including WebSocket upgrades
//
// Routes returned by Protect additionally get per-client rate limiting
// and JWT bearer auth when configured.
//
// Default endpoints (server/endpoint): /health, /ready, /live and
// /version. Services add /stages, the stream routes and /events.
package server
