package parser

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrMissingAttributeOrText marks an anchor skipped for lack of href or caption.
	ErrMissingAttributeOrText = errors.New("missing attribute or text")
	// ErrAmbiguousCaption marks an anchor with several text nodes; the first one was used.
	ErrAmbiguousCaption = errors.New("ambiguous caption")
)

// Diagnostic is an element-level anomaly met during extraction. It never
// aborts the traversal.
type Diagnostic struct {
	Href   string   // empty when the href itself was missing
	Texts  []string // caption text nodes, when relevant
	Err    error
	Detail string
}

// Skipped reports whether the element was dropped from the result.
func (d Diagnostic) Skipped() bool {
	return errors.Is(d.Err, ErrMissingAttributeOrText)
}

// Diagnostics is the side stream of an extraction.
type Diagnostics []Diagnostic

// Count returns how many diagnostics wrap target.
func (ds Diagnostics) Count(target error) int {
	n := 0
	for _, d := range ds {
		if errors.Is(d.Err, target) {
			n++
		}
	}
	return n
}

// Log writes every diagnostic as a warning.
func (ds Diagnostics) Log(entry *log.Entry) {
	for _, d := range ds {
		e := entry.WithError(d.Err)
		if d.Href != "" {
			e = e.WithField("href", d.Href)
		}
		if d.Skipped() {
			e.Warnf("⚠️ Skipping element: %s", d.Detail)
			continue
		}
		e.WithField("texts", d.Texts).Warnf("⚠️ %s", d.Detail)
	}
}
