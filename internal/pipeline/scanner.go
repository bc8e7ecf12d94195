// Package pipeline holds the per-turn streaming primitives: the tag scanner
// that separates visible answer text from leaked reasoning markup, the
// specialist choice tracker, and the citation collector.
package pipeline

import "strings"

const (
	openMarker  = "<thinking>"
	closeMarker = "</thinking>"
)

// ScannerState identifies where the scanner is relative to a reasoning span.
type ScannerState int

const (
	StateOutside ScannerState = iota
	StateTagOpenPartial
	StateInsideReasoning
	StateTagClosePartial
)

// EventKind classifies a scanner output fragment.
type EventKind int

const (
	// KindContent is user-visible answer text.
	KindContent EventKind = iota
	// KindThinking is reasoning text, forwarded only as a UI hint.
	KindThinking
	// KindThinkingStart marks confirmation of an opening marker.
	KindThinkingStart
	// KindThinkingEnd marks confirmation of a closing marker.
	KindThinkingEnd
)

// Event is one classified fragment of scanner output.
type Event struct {
	Kind EventKind
	Text string
}

// TagScanner splits an arbitrarily chunked text stream into visible content
// and reasoning spans delimited by <thinking>...</thinking>, tolerating
// markers split across chunk boundaries. Marker characters never appear in
// either output stream. A TagScanner covers exactly one turn; create a fresh
// one per request.
type TagScanner struct {
	inside bool
	// pending holds a trailing fragment that may still grow into a marker.
	pending string
}

// NewTagScanner returns a scanner in the OUTSIDE state.
func NewTagScanner() *TagScanner {
	return &TagScanner{}
}

// State reports the current machine state, mostly for tests and logging.
func (s *TagScanner) State() ScannerState {
	switch {
	case s.inside && s.pending != "":
		return StateTagClosePartial
	case s.inside:
		return StateInsideReasoning
	case s.pending != "":
		return StateTagOpenPartial
	default:
		return StateOutside
	}
}

// Feed classifies one chunk. Empty or whitespace-only chunks are discarded
// without emitting events.
func (s *TagScanner) Feed(chunk string) []Event {
	if strings.TrimSpace(chunk) == "" {
		return nil
	}

	// Re-scan any buffered partial marker together with the new input. This
	// collapses the TAG_*_PARTIAL states into a plain rescan: a buffered
	// fragment that the new chunk disproves falls out as ordinary text.
	text := s.pending + chunk
	s.pending = ""

	var events []Event
	for text != "" {
		if s.inside {
			text = s.scanReasoning(text, &events)
		} else {
			text = s.scanOutside(text, &events)
		}
	}
	return events
}

// Flush terminates the stream. A buffered opening-marker prefix or
// unterminated reasoning text is discarded; tag fragments must never leak
// into the answer. A fragment held back while OUTSIDE only because it might
// have grown into a closing marker is ordinary text that end-of-stream has
// disproved, so it surfaces as content.
func (s *TagScanner) Flush() []Event {
	var events []Event
	if !s.inside && s.pending != "" && !strings.HasPrefix(openMarker, s.pending) {
		events = append(events, Event{Kind: KindContent, Text: s.pending})
	}
	s.pending = ""
	s.inside = false
	return events
}

func (s *TagScanner) scanOutside(text string, events *[]Event) string {
	iOpen := strings.Index(text, openMarker)
	iClose := strings.Index(text, closeMarker)

	switch {
	case iOpen >= 0 && (iClose < 0 || iOpen < iClose):
		if before := text[:iOpen]; before != "" {
			*events = append(*events, Event{Kind: KindContent, Text: before})
		}
		*events = append(*events, Event{Kind: KindThinkingStart})
		s.inside = true
		return text[iOpen+len(openMarker):]
	case iClose >= 0:
		// A full closing marker while outside is malformed upstream output.
		// It is not a signal, but the marker characters still must not leak.
		if before := text[:iClose]; before != "" {
			*events = append(*events, Event{Kind: KindContent, Text: before})
		}
		return text[iClose+len(closeMarker):]
	}

	// No complete marker. Hold back the longest tail that could still grow
	// into one and emit the rest as content.
	keep := longestMarkerPrefix(text, openMarker)
	if k := longestMarkerPrefix(text, closeMarker); k > keep {
		keep = k
	}
	if emit := text[:len(text)-keep]; emit != "" {
		*events = append(*events, Event{Kind: KindContent, Text: emit})
	}
	s.pending = text[len(text)-keep:]
	return ""
}

func (s *TagScanner) scanReasoning(text string, events *[]Event) string {
	if i := strings.Index(text, closeMarker); i >= 0 {
		if before := text[:i]; before != "" {
			*events = append(*events, Event{Kind: KindThinking, Text: before})
		}
		*events = append(*events, Event{Kind: KindThinkingEnd})
		s.inside = false
		return text[i+len(closeMarker):]
	}

	keep := longestMarkerPrefix(text, closeMarker)
	if emit := text[:len(text)-keep]; emit != "" {
		*events = append(*events, Event{Kind: KindThinking, Text: emit})
	}
	s.pending = text[len(text)-keep:]
	return ""
}

// longestMarkerPrefix returns the length of the longest suffix of text that
// is a proper prefix of marker.
func longestMarkerPrefix(text, marker string) int {
	max := len(marker) - 1
	if len(text) < max {
		max = len(text)
	}
	for k := max; k > 0; k-- {
		if text[len(text)-k:] == marker[:k] {
			return k
		}
	}
	return 0
}
