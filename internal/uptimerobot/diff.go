package uptimerobot

// Diff compares two snapshots and returns the detected status transitions,
// ordered by cur's monitor order. It is pure: no I/O, deterministic for the
// same inputs, and emits all of a cycle's transitions in one call.
//
// Edge policy (deliberate, not accidental):
//   - a monitor only in cur is "newly observed", not an alertable change;
//   - a monitor only in prev is silently dropped (its disappearance is not
//     alertable, and it won't be carried into the next persisted snapshot);
//   - a nil status on either side is incomplete data, not a signal.
func Diff(prev, cur Snapshot) []Transition {
	if len(cur.Monitors) == 0 {
		return nil
	}
	idx := prev.Index()

	var out []Transition
	for _, m := range cur.Monitors {
		if m.Status == nil {
			continue
		}
		old, ok := idx[m.ID]
		if !ok || old.Status == nil {
			continue
		}
		if *old.Status == *m.Status {
			continue
		}
		out = append(out, Transition{
			ID:        m.ID,
			Name:      m.Name,
			OldStatus: *old.Status,
			NewStatus: *m.Status,
		})
	}
	return out
}
