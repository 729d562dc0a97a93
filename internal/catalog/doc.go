// Package catalog sits between the media index and the picker: the image
// catalog adds the format filter, point queries and a single-flight full
// snapshot; the folder catalog derives cached per-bucket aggregates from
// that snapshot.
package catalog
