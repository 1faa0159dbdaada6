// Package report renders monitor state and transition history as chat text.
package report

import (
	"fmt"
	"strings"
	"time"

	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
)

// StatusReport renders a snapshot as a plain text summary, one line per
// monitor in the API's reporting order.
func StatusReport(snap uptimerobot.Snapshot) string {
	if snap.Len() == 0 {
		return "No monitors found for this account."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Monitor status (%d total)\n", snap.Len())
	for _, m := range snap.Monitors {
		label := "unknown"
		if m.Status != nil {
			label = uptimerobot.StatusLabel(*m.Status)
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.Name, label)
	}
	if snap.Total > snap.Limit && snap.Limit > 0 {
		fmt.Fprintf(&b, "Showing first %d of %d monitors.\n", snap.Limit, snap.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TransitionLine renders one historical transition for digest and
// history output.
func TransitionLine(rec storage.TransitionRecord) string {
	return fmt.Sprintf("%s  %s: %s -> %s",
		rec.At.Local().Format("2006-01-02 15:04"),
		rec.Name,
		uptimerobot.StatusLabel(rec.OldStatus),
		uptimerobot.StatusLabel(rec.NewStatus))
}

// Digest renders a periodic summary: the current snapshot plus recent
// transitions since the previous digest window.
func Digest(snap uptimerobot.Snapshot, recent []storage.TransitionRecord, window time.Duration) string {
	var b strings.Builder
	b.WriteString(StatusReport(snap))

	cutoff := time.Now().Add(-window)
	var lines []string
	for _, r := range recent {
		if window > 0 && r.At.Before(cutoff) {
			continue
		}
		lines = append(lines, TransitionLine(r))
	}
	if len(lines) > 0 {
		b.WriteString("\n\nRecent changes:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}
