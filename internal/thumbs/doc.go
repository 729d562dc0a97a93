// Package thumbs is the thumbnail layer: a byte-weighted LRU of decoded
// images keyed by (uri, target size), filled through a three-path decode
// chain ending in a software AVIF/HEIF fallback.
package thumbs
