// Package mediastore is the device media index: a SQLite database of image
// rows populated by the scanner and read through filtered, sorted, paginated
// queries. All filters (format, folder) are pushed down into SQL; results
// come back in descending date-added order.
package mediastore
