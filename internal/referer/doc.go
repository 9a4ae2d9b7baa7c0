// Package referer classifies HTTP referer URLs against a known-referer
// database. A database is flattened into an Index keyed by host (or
// host/first-path-segment); a Classifier walks that index from the most
// specific host label to the least specific one and, for search engines,
// extracts the search term from the referer's query string.
//
// A built Classifier is never mutated and may be shared across goroutines.
package referer
