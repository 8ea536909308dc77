package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "codetype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r := rec("go-loops", "go", time.Duration(3-i)*time.Hour, 30+i*5, 90+i, 2)
		if err := st.InsertCompletion(ctx, r); err != nil {
			t.Fatalf("insert completion: %v", err)
		}
	}
	if err := st.InsertCompletion(ctx, rec("js-loops", "js", 30*time.Minute, 50, 99, 0)); err != nil {
		t.Fatalf("insert completion: %v", err)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Lang: "go", Last: 2, CurveWindow: 2}, now)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(report.Records))
	}
	if report.Records[0].WPM != 35 || report.Records[1].WPM != 40 {
		t.Fatalf("unexpected records: %+v", report.Records)
	}
	if report.Summary.Count != 2 || report.Summary.AvgWPM != 38 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	curves := report.Curves()
	if len(curves) != 2 || curves[0].Values[1] != 37.5 {
		t.Fatalf("unexpected curves: %+v", curves)
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, RenderOptions{Width: 60}); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	for _, section := range []string{"Summary", "Languages", "Last 7 Days", "Needs Practice", "Learning Curves", "History"} {
		if !strings.Contains(out, section) {
			t.Fatalf("expected section %q in output:\n%s", section, out)
		}
	}
}

func TestRenderReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, Report{}, RenderOptions{}); err != nil {
		t.Fatalf("render report: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No completed lessons yet." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	r := rec("go-loops", "go", time.Hour, 42, 97, 1)
	r.TimeSpentMs = 65_000
	if err := RenderHistory(&buf, []model.CompletedLesson{r}); err != nil {
		t.Fatalf("render history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected title, header and row, got %d lines", len(lines))
	}
	fields := strings.Fields(lines[2])
	if fields[2] != "go-loops" || fields[4] != "42" || fields[6] != "97%" || fields[8] != "1m05s" {
		t.Fatalf("unexpected history row %q", lines[2])
	}
}
