// Package main hosts the referer classifier entrypoint.
//
// Architecture overview:
//   - Core: internal/referer builds a flat host/path index from the
//     medium -> referer -> {domains, parameters} database and classifies referer
//     URLs against it, walking up the domain hierarchy and extracting search
//     terms for search engines.
//   - Database: internal/refdb holds the active classifier and swaps it
//     atomically on reload. Databases come from the embedded default, a local
//     file (watched with fsnotify when database.watch is set) or a GCS object.
//   - HTTP API: internal/api exposes /v1/classify (single and batch),
//     /v1/database, probes and /metrics on a chi router with request IDs, zap
//     logging, optional API key auth and per-client rate limiting.
//   - Events: every API classification may be queued to a worker pool that
//     delivers it to a log, Pub/Sub or Postgres sink. A full queue drops events
//     rather than slowing requests.
//
// Quick checklist:
//   - One-off: referer classify 'https://www.google.com/search?q=otters'
//   - Validate a database: referer validate referers.yml
//   - Serve: referer serve --config config.yaml, or set REFERER_* variables such
//     as REFERER_SERVER_PORT, REFERER_DATABASE_SOURCE and REFERER_EVENTS_SINK.
package main
