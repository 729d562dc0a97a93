package picker

import "math"

// DefaultMimeTypes is the accepted-format filter used when a Config does
// not override it.
var DefaultMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/avif",
	"image/heic",
	"image/heif",
}

// Config holds the caller-supplied picker session options. It is immutable
// for the lifetime of a session.
type Config struct {
	// MaxSelection caps the number of selectable images. Zero or negative
	// means unbounded.
	MaxSelection int `json:"maxSelection"`

	// MimeTypes is the accepted-format filter. Empty means DefaultMimeTypes.
	MimeTypes []string `json:"mimeTypes,omitempty"`

	// GridColumns is the photo grid column count.
	GridColumns int `json:"gridColumns"`

	// Label overrides for the host UI.
	ContinueLabel   string `json:"continueLabel"`
	PhotosTabLabel  string `json:"photosTabLabel"`
	FoldersTabLabel string `json:"foldersTabLabel"`
	Title           string `json:"title"`

	// ShowSelectAll toggles the select-all affordance.
	ShowSelectAll bool `json:"showSelectAll"`

	// PreselectedURIs are content identifiers (as produced by Image.URI)
	// to seed the selection with at session start.
	PreselectedURIs []string `json:"preselectedUris,omitempty"`
}

// DefaultConfig returns the default picker configuration.
func DefaultConfig() Config {
	return Config{
		MimeTypes:       DefaultMimeTypes,
		GridColumns:     3,
		ContinueLabel:   "Continue",
		PhotosTabLabel:  "Photos",
		FoldersTabLabel: "Folders",
		Title:           "Select Images",
		ShowSelectAll:   true,
	}
}

// maxSelection normalizes the cap: unbounded configs select up to MaxInt.
func (c Config) maxSelection() int {
	if c.MaxSelection <= 0 {
		return math.MaxInt
	}
	return c.MaxSelection
}

// AcceptedTypes returns the effective format filter.
func (c Config) AcceptedTypes() []string {
	if len(c.MimeTypes) == 0 {
		return DefaultMimeTypes
	}
	return c.MimeTypes
}
