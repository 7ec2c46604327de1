package envelope

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// DefaultFilename names downloads whose response carries no usable
// Content-Disposition filename.
const DefaultFilename = "export"

// ContentKind classifies a response body.
type ContentKind int

const (
	// KindFile is any non-JSON body, handled as a downloadable file.
	KindFile ContentKind = iota
	// KindJSON is an `application/json` (or `+json`) body.
	KindJSON
)

func (k ContentKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	default:
		return "file"
	}
}

// Kind inspects a Content-Type header value. Parameters are ignored and an
// empty or malformed header is a file.
func Kind(contentType string) ContentKind {
	mediaType := mediaTypeOf(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return KindJSON
	}
	return KindFile
}

// IsJSON is shorthand for Kind(contentType) == KindJSON.
func IsJSON(contentType string) bool {
	return Kind(contentType) == KindJSON
}

func mediaTypeOf(contentType string) string {
	trimmed := strings.TrimSpace(contentType)
	if trimmed == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(trimmed)
	if err != nil {
		// Loose fallback for headers like "application/json;" that the
		// strict parser rejects.
		mediaType, _, _ = strings.Cut(trimmed, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ContentTypeError is returned by guarded endpoints receiving something other
// than JSON.
type ContentTypeError struct {
	Got  string
	Want string
}

func (e *ContentTypeError) Error() string {
	got := e.Got
	if got == "" {
		got = "<none>"
	}
	return fmt.Sprintf("envelope: unexpected content type: expected %s, got %s", e.Want, got)
}

// RequireJSON returns a *ContentTypeError unless contentType is JSON.
func RequireJSON(contentType string) error {
	if IsJSON(contentType) {
		return nil
	}
	return &ContentTypeError{Got: contentType, Want: "application/json"}
}

// Filename extracts the download name from a Content-Disposition header.
// RFC 6266 parsing is tried first, then the loose `filename=` split the pages
// relied on. Only the base name is kept; DefaultFilename is returned when
// nothing usable remains.
func Filename(disposition string) string {
	trimmed := strings.TrimSpace(disposition)
	if trimmed == "" {
		return DefaultFilename
	}

	if _, params, err := mime.ParseMediaType(trimmed); err == nil {
		if name := cleanFilename(params["filename"]); name != "" {
			return name
		}
	}

	_, after, found := strings.Cut(trimmed, "filename=")
	if !found {
		return DefaultFilename
	}
	after, _, _ = strings.Cut(after, ";")
	if name := cleanFilename(strings.ReplaceAll(after, `"`, "")); name != "" {
		return name
	}
	return DefaultFilename
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
