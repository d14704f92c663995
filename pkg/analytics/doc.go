// Package analytics turns the raw trending archive into queryable artifacts.
//
// The archive side is a directory tree of daily trending pages per kind
// (repository or developer). A build ingests one year of those pages into a
// per-kind SQLite database, maintains a manifest describing the available
// dates and languages, and optionally precomputes per-day presence rollups
// that speed up the window queries. QueryService answers the read operations
// the legacy web server exposes; ResultCache memoizes those answers.
package analytics
