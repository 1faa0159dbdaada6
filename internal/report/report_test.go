package report

import (
	"strings"
	"testing"
	"time"

	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
)

func intp(v int) *int { return &v }

func TestStatusReportEmpty(t *testing.T) {
	t.Parallel()
	got := StatusReport(uptimerobot.Snapshot{})
	if got != "No monitors found for this account." {
		t.Fatalf("unexpected empty report: %q", got)
	}
}

func TestStatusReportLines(t *testing.T) {
	t.Parallel()
	snap := uptimerobot.Snapshot{
		Monitors: []uptimerobot.Monitor{
			{ID: 1, Name: "Web", Status: intp(uptimerobot.StatusUp)},
			{ID: 2, Name: "API", Status: intp(uptimerobot.StatusDown)},
			{ID: 3, Name: "Worker", Status: nil},
		},
		Total: 3,
		Limit: 50,
	}
	got := StatusReport(snap)
	for _, want := range []string{"- Web: up", "- API: down", "- Worker: unknown", "3 total"} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Showing first") {
		t.Fatalf("unexpected pagination note:\n%s", got)
	}
}

func TestStatusReportPaginationNote(t *testing.T) {
	t.Parallel()
	snap := uptimerobot.Snapshot{
		Monitors: []uptimerobot.Monitor{{ID: 1, Name: "Web", Status: intp(2)}},
		Total:    120,
		Limit:    50,
	}
	got := StatusReport(snap)
	if !strings.Contains(got, "Showing first 50 of 120 monitors.") {
		t.Fatalf("missing pagination note:\n%s", got)
	}
}

func TestDigestWindow(t *testing.T) {
	t.Parallel()
	now := time.Now()
	snap := uptimerobot.Snapshot{
		Monitors: []uptimerobot.Monitor{{ID: 1, Name: "Web", Status: intp(2)}},
	}
	recent := []storage.TransitionRecord{
		{At: now.Add(-10 * time.Minute), Name: "Web", OldStatus: 9, NewStatus: 2},
		{At: now.Add(-48 * time.Hour), Name: "Old", OldStatus: 2, NewStatus: 9},
	}
	got := Digest(snap, recent, 24*time.Hour)
	if !strings.Contains(got, "Web: down -> up") {
		t.Fatalf("digest missing recent transition:\n%s", got)
	}
	if strings.Contains(got, "Old:") {
		t.Fatalf("digest should exclude transitions outside window:\n%s", got)
	}
}
