// Package server is the demo host: a JSON HTTP surface over the picker
// core (catalog paging, folder drill-down, thumbnails and picker
// sessions) so the library can be exercised without a native UI.
package server
