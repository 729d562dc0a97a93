// Package metrics defines the Prometheus collectors for the picker core:
// media index queries, scanner runs, snapshot coalescing, the thumbnail
// cache, picker sessions, and the demo host's HTTP surface.
package metrics
