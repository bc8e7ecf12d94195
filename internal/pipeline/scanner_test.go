package pipeline

import (
	"strings"
	"testing"
)

func collect(s *TagScanner, chunks []string) (visible, hidden string, starts, ends int) {
	for _, chunk := range chunks {
		for _, ev := range s.Feed(chunk) {
			switch ev.Kind {
			case KindContent:
				visible += ev.Text
			case KindThinking:
				hidden += ev.Text
			case KindThinkingStart:
				starts++
			case KindThinkingEnd:
				ends++
			}
		}
	}
	for _, ev := range s.Flush() {
		if ev.Kind == KindContent {
			visible += ev.Text
		}
	}
	return
}

func TestScannerSplitMarkerAcrossChunks(t *testing.T) {
	chunks := []string{"Hello ", "<thi", "nking>", "secret", "</thinking>", " world"}
	visible, hidden, starts, ends := collect(NewTagScanner(), chunks)

	if visible != "Hello  world" {
		t.Fatalf("visible = %q, want %q", visible, "Hello  world")
	}
	if hidden != "secret" {
		t.Fatalf("hidden = %q, want %q", hidden, "secret")
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("starts=%d ends=%d, want 1/1", starts, ends)
	}
}

func TestScannerChunkBoundaryInvariance(t *testing.T) {
	logical := "alpha<thinking>bravo</thinking>charlie<thinking>delta</thinking>echo"

	wantVisible, wantHidden, _, _ := collect(NewTagScanner(), []string{logical})
	if wantVisible != "alphacharlieecho" {
		t.Fatalf("baseline visible = %q", wantVisible)
	}
	if wantHidden != "bravodelta" {
		t.Fatalf("baseline hidden = %q", wantHidden)
	}

	// Every split size, including ones that cut markers mid-byte.
	for size := 1; size <= len(logical); size++ {
		var chunks []string
		for i := 0; i < len(logical); i += size {
			end := i + size
			if end > len(logical) {
				end = len(logical)
			}
			chunks = append(chunks, logical[i:end])
		}
		visible, hidden, _, _ := collect(NewTagScanner(), chunks)
		if visible != wantVisible {
			t.Fatalf("size %d: visible = %q, want %q", size, visible, wantVisible)
		}
		if hidden != wantHidden {
			t.Fatalf("size %d: hidden = %q, want %q", size, hidden, wantHidden)
		}
	}
}

func TestScannerNeverLeaksMarkers(t *testing.T) {
	inputs := [][]string{
		{"<thinking>", "a", "</thinking>"},
		{"x<thin", "king>y</thin", "king>z"},
		{"<", "t", "h", "i", "n", "k", "i", "n", "g", ">", "hidden", "<", "/thinking>", "tail"},
	}
	for _, chunks := range inputs {
		visible, hidden, _, _ := collect(NewTagScanner(), chunks)
		for _, marker := range []string{"<thinking>", "</thinking>"} {
			if strings.Contains(visible, marker) {
				t.Fatalf("visible %q contains %q", visible, marker)
			}
			if strings.Contains(hidden, marker) {
				t.Fatalf("hidden %q contains %q", hidden, marker)
			}
		}
	}
}

func TestScannerBareMarkerChunkEmitsNoContent(t *testing.T) {
	s := NewTagScanner()
	for _, ev := range s.Feed("<thinking>") {
		if ev.Kind == KindContent {
			t.Fatalf("unexpected content event %q", ev.Text)
		}
	}
	if s.State() != StateInsideReasoning {
		t.Fatalf("state = %v, want inside reasoning", s.State())
	}
}

func TestScannerUnterminatedOpenDiscardedOnFlush(t *testing.T) {
	visible, hidden, _, _ := collect(NewTagScanner(), []string{"answer ", "<thinki"})
	if visible != "answer " {
		t.Fatalf("visible = %q, want %q", visible, "answer ")
	}
	if hidden != "" {
		t.Fatalf("hidden = %q, want empty", hidden)
	}
}

func TestScannerUnterminatedReasoningDiscarded(t *testing.T) {
	visible, _, starts, ends := collect(NewTagScanner(), []string{"<thinking>never closed"})
	if visible != "" {
		t.Fatalf("visible = %q, want empty", visible)
	}
	if starts != 1 || ends != 0 {
		t.Fatalf("starts=%d ends=%d, want 1/0", starts, ends)
	}
}

func TestScannerDisprovedOpenPrefixBecomesContent(t *testing.T) {
	visible, hidden, _, _ := collect(NewTagScanner(), []string{"a<thi", "rd option"})
	if visible != "a<third option" {
		t.Fatalf("visible = %q, want %q", visible, "a<third option")
	}
	if hidden != "" {
		t.Fatalf("hidden = %q, want empty", hidden)
	}
}

func TestScannerHeldClosePrefixSurfacesOnFlush(t *testing.T) {
	visible, hidden, _, ends := collect(NewTagScanner(), []string{"finished</thi"})
	if visible != "finished</thi" {
		t.Fatalf("visible = %q, want %q", visible, "finished</thi")
	}
	if hidden != "" || ends != 0 {
		t.Fatalf("hidden=%q ends=%d, want empty/0", hidden, ends)
	}
}

func TestScannerAmbiguousPrefixDiscardedOnFlush(t *testing.T) {
	// A lone "<" could have opened a marker, so it follows the
	// unterminated-open rule and is dropped.
	visible, _, _, _ := collect(NewTagScanner(), []string{"tail<"})
	if visible != "tail" {
		t.Fatalf("visible = %q, want %q", visible, "tail")
	}
}

func TestScannerCloseMarkerOutsideIsNotASignal(t *testing.T) {
	visible, _, starts, ends := collect(NewTagScanner(), []string{"a</thinking>b"})
	if visible != "ab" {
		t.Fatalf("visible = %q, want %q", visible, "ab")
	}
	if starts != 0 || ends != 0 {
		t.Fatalf("starts=%d ends=%d, want 0/0", starts, ends)
	}
}

func TestScannerWhitespaceOnlyChunksDiscarded(t *testing.T) {
	s := NewTagScanner()
	if evs := s.Feed("   "); len(evs) != 0 {
		t.Fatalf("expected no events, got %d", len(evs))
	}
	if evs := s.Feed(""); len(evs) != 0 {
		t.Fatalf("expected no events, got %d", len(evs))
	}
}

func TestScannerStateTransitions(t *testing.T) {
	s := NewTagScanner()
	if s.State() != StateOutside {
		t.Fatalf("initial state = %v", s.State())
	}
	s.Feed("<thi")
	if s.State() != StateTagOpenPartial {
		t.Fatalf("after partial open: %v", s.State())
	}
	s.Feed("nking>hidden")
	if s.State() != StateInsideReasoning {
		t.Fatalf("after open: %v", s.State())
	}
	s.Feed("</thin")
	if s.State() != StateTagClosePartial {
		t.Fatalf("after partial close: %v", s.State())
	}
	s.Feed("king>")
	if s.State() != StateOutside {
		t.Fatalf("after close: %v", s.State())
	}
}
