package lookup

import "strings"

// SummaryKind tags the outcome of an encyclopedia summary lookup.
type SummaryKind int

const (
	SummaryFound SummaryKind = iota
	SummaryAmbiguous
	SummaryNotFound
	SummaryFailed
)

func (k SummaryKind) String() string {
	switch k {
	case SummaryFound:
		return "found"
	case SummaryAmbiguous:
		return "ambiguous"
	case SummaryNotFound:
		return "not_found"
	case SummaryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SummaryResult is returned by encyclopedia adapters instead of raising errors.
// Text is set for SummaryFound, Options for SummaryAmbiguous and Err for SummaryFailed.
type SummaryResult struct {
	Kind    SummaryKind
	Text    string
	Options []string
	Err     error
}

// Found wraps a summary text.
func Found(text string) SummaryResult {
	return SummaryResult{Kind: SummaryFound, Text: text}
}

// Ambiguous wraps the suggested alternative topics of a disambiguation page.
func Ambiguous(options []string) SummaryResult {
	return SummaryResult{Kind: SummaryAmbiguous, Options: options}
}

// NotFound reports a topic without a matching page.
func NotFound() SummaryResult {
	return SummaryResult{Kind: SummaryNotFound}
}

// Failed wraps any other lookup error.
func Failed(err error) SummaryResult {
	return SummaryResult{Kind: SummaryFailed, Err: err}
}

// ImageCaptionMarker identifies bot replies whose last line is an image URL.
const ImageCaptionMarker = "Here's an image from Wikipedia"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// IsImageURL reports whether url ends in one of the renderable image extensions.
func IsImageURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
