// Package datefmt parses the date strings sent by the herd server and formats
// them for display (day, abbreviated month, year).
package datefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is the locale the pages were written for.
const DefaultLocale = "fr-FR"

// ErrUnparseable is returned when no known layout matches.
var ErrUnparseable = errors.New("datefmt: unparseable date")

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02/01/2006",
}

// Parse tries every supported layout in turn.
func Parse(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseable)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
}

var (
	french  = language.French
	english = language.English

	supported = []language.Tag{french, english}
	matcher   = language.NewMatcher(supported)

	// indexed like supported
	monthNames = [][12]string{
		{
			"janv.", "févr.", "mars", "avr.", "mai", "juin",
			"juil.", "août", "sept.", "oct.", "nov.", "déc.",
		},
		{
			"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
		},
	}
)

// Formatter renders dates for one locale.
type Formatter struct {
	tag    language.Tag
	months [12]string
}

// New picks the closest supported locale for the given BCP 47 tag. Unknown or
// malformed tags fall back to French.
func New(locale string) Formatter {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	idx := 0
	if parsed, err := language.Parse(locale); err == nil {
		if _, matched, confidence := matcher.Match(parsed); confidence != language.No {
			idx = matched
		}
	}
	return Formatter{tag: supported[idx], months: monthNames[idx]}
}

// Locale returns the matched locale tag.
func (f Formatter) Locale() string {
	return f.tag.String()
}

// Format renders t as "02 janv. 2006" (two-digit day, abbreviated month,
// four-digit year). The zero Formatter formats in French.
func (f Formatter) Format(t time.Time) string {
	months := f.months
	if months[0] == "" {
		months = monthNames[0]
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// FormatString parses then formats raw; unparseable input is returned as is.
func (f Formatter) FormatString(raw string) string {
	t, err := Parse(raw)
	if err != nil {
		return raw
	}
	return f.Format(t)
}
