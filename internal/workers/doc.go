// Package workers sizes the worker pool used for blocking I/O such as
// index queries and thumbnail decoding.
package workers
