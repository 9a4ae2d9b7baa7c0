// Package api hosts the HTTP server, middleware, and REST handlers for the
// referer classifier. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET and POST /v1/classify for single and batch classification.
//   - GET /v1/database and POST /v1/database/reload for the active database.
package api
