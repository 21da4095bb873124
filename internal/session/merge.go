package session

import (
	"sort"

	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/event"
	"github.com/gravity-api/g4-recorder/internal/metrics"
)

// Snapshot is one connection's contribution to a compile pass: its
// identity, compile-time policy, and a consistent copy of its buffer.
type Snapshot struct {
	Name             string
	BaseURL          string
	Mode             config.Mode
	ThinkTime        event.ThinkTimeSettings
	DriverParameters map[string]any
	Events           []event.RawEvent
}

// mergeAndSegment flattens every snapshot's buffer into one global
// sequence, normalizing each event and tagging it with its origin,
// sorts ascending by timestamp with a stable tie-break, and partitions
// the result into contiguous groups by machine name. A machine
// reappearing after an intervening different machine starts a new
// group; it never rejoins an earlier one. Pure function of its input:
// identical snapshots segment identically.
func mergeAndSegment(snapshots []Snapshot, selfMarker string, m *metrics.Metrics) []event.BufferGroup {
	type tagged struct {
		ev     event.NormalizedEvent
		origin int
	}

	var merged []tagged
	for i, snap := range snapshots {
		for _, raw := range snap.Events {
			n, ok := event.Normalize(raw, selfMarker)
			if !ok {
				m.Dropped(dropReason(raw))
				continue
			}
			merged = append(merged, tagged{ev: n, origin: i})
		}
	}

	// Stable: equal timestamps keep their per-connection relative order,
	// so causally-linked events from one source never reorder.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ev.Timestamp < merged[j].ev.Timestamp
	})

	var groups []event.BufferGroup
	for _, t := range merged {
		last := len(groups) - 1
		if last < 0 || groups[last].MachineName != t.ev.MachineName {
			origin := snapshots[t.origin]
			groups = append(groups, event.BufferGroup{
				ID:          len(groups) + 1,
				MachineName: t.ev.MachineName,
				Origin:      t.origin,
				BaseURL:     origin.BaseURL,
				ThinkTime:   origin.ThinkTime,
			})
			last++
		}
		groups[last].Events = append(groups[last].Events, t.ev)
	}
	return groups
}

// dropReason classifies why normalization rejected an event, for the
// drop counter only. Rejection has three causes; the first two are
// checked directly and self-origination follows by elimination.
func dropReason(raw event.RawEvent) string {
	if raw.Phase != event.PhaseUp {
		return metrics.DropDownPhase
	}
	if _, ok := raw.Trigger(); !ok {
		return metrics.DropNoTarget
	}
	return metrics.DropSelf
}
