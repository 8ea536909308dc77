package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/codetype/internal/typing"
)

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		snap:        typing.Snapshot{CursorIndex: 2, Length: 4},
		hasLast:     true,
		lastWPM:     72,
		lastAcc:     98,
		allWPM:      68,
		allAcc:      97,
		historySize: 5,
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Progress 50%", "Last 72 WPM · 98%", "All-time 68 WPM · 97%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterWithoutHistory(t *testing.T) {
	m := &Model{snap: typing.Snapshot{Length: 4}}
	out := m.renderFooter()
	if strings.Contains(out, "Last") || strings.Contains(out, "All-time") {
		t.Fatalf("expected only progress without history: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
