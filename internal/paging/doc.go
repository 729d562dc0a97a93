// Package paging provides a generic offset/limit page-source abstraction:
// exhaustive, non-duplicating, restartable-from-zero paging over any fetch
// function, with an Idle/Loading/Loaded/Errored state per source.
package paging
