package protocol

import (
	"fmt"
	"strings"

	"github.com/hpungsan/clipd/internal/store"
)

// DefaultPreview bounds rendered values when a list command does not supply
// its own preview length.
const DefaultPreview = 64

// previewPrefix is how many leading runes survive when a long value is
// collapsed to head...tail form.
const previewPrefix = 16

// Render converts a payload to the text written back on the raw socket and
// shown at the prompt.
func Render(p Payload) string {
	switch p.Type {
	case PayloadOk:
		return "ok"
	case PayloadStop:
		return "stop"
	case PayloadMessage:
		return p.Message
	case PayloadValue:
		if p.Value == nil {
			return ""
		}
		return *p.Value
	case PayloadList:
		preview := DefaultPreview
		if p.Preview != nil && *p.Preview > 0 {
			preview = *p.Preview
		}
		lines := make([]string, 0, len(p.Items))
		for _, item := range p.Items {
			lines = append(lines, FormatItem(item, preview))
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

// FormatItem renders one indexed entry as a display line: index, preview of
// the value, tags, access date, and the pin when set.
func FormatItem(item store.IndexedEntry, preview int) string {
	e := item.Entry
	line := fmt.Sprintf("%d: %-*s #[%-16s] @[%s]",
		item.Index,
		preview,
		Shorten(e.Value, preview),
		strings.Join(e.Tags, ","),
		e.AccessedAt.Format("02-01-2006"))
	if e.Pin != "" {
		line += fmt.Sprintf(" *[%s]", e.Pin)
	}
	return line
}

// Shorten bounds a value to max runes for display. A value over the bound
// collapses to a fixed 16-rune head and tail around dots when max leaves room
// for that form, otherwise to a plain prefix. Values are always cut at their
// first newline.
func Shorten(s string, max int) string {
	if max <= 0 {
		max = DefaultPreview
	}

	runes := []rune(s)
	if len(runes) > max {
		switch {
		case max >= 2*previewPrefix+3:
			s = string(runes[:previewPrefix]) + "..." + string(runes[len(runes)-previewPrefix:])
		case max > 3:
			s = string(runes[:max-3]) + "..."
		default:
			s = string(runes[:max])
		}
	}

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	return s
}
