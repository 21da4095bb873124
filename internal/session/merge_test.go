package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/event"
	"github.com/gravity-api/g4-recorder/internal/metrics"
	"github.com/gravity-api/g4-recorder/internal/rules"
)

func rawClick(machine string, ts int64) event.RawEvent {
	return event.RawEvent{
		Timestamp:   ts,
		MachineName: machine,
		Kind:        event.KindPointer,
		Phase:       event.PhaseUp,
		Button:      event.ButtonLeft,
		Chain: event.Chain{
			Locator: "//button",
			Path:    []event.UIElement{{Bounds: event.Bounds{X: 1, Y: 2, Width: 3, Height: 4}}},
		},
	}
}

func rawKey(machine string, ts int64, k string) event.RawEvent {
	ev := rawClick(machine, ts)
	ev.Kind = event.KindKeyboard
	ev.Button = event.ButtonUnknown
	ev.Key = k
	return ev
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func snap(baseURL string, events ...event.RawEvent) Snapshot {
	return Snapshot{
		Name:    baseURL,
		BaseURL: baseURL,
		Mode:    config.ModeStandard,
		Events:  events,
	}
}

func TestMergeOrderingInvariant(t *testing.T) {
	groups := mergeAndSegment([]Snapshot{
		snap("http://a", rawClick("host-a", 300), rawClick("host-a", 500)),
		snap("http://b", rawClick("host-a", 100), rawClick("host-a", 400)),
	}, "", testMetrics())

	if len(groups) != 1 {
		t.Fatalf("same machine must form one group, got %d", len(groups))
	}
	var prev int64 = -1
	for _, ev := range groups[0].Events {
		if ev.Timestamp < prev {
			t.Fatalf("merged sequence must be non-decreasing, saw %d after %d", ev.Timestamp, prev)
		}
		prev = ev.Timestamp
	}
	if len(groups[0].Events) != 4 {
		t.Errorf("expected 4 events, got %d", len(groups[0].Events))
	}
}

func TestMergeStableTieBreak(t *testing.T) {
	// Equal timestamps must preserve each connection's relative order.
	groups := mergeAndSegment([]Snapshot{
		snap("http://a", rawKey("host-a", 100, "1"), rawKey("host-a", 100, "2")),
	}, "", testMetrics())

	evs := groups[0].Events
	if evs[0].Key != "1" || evs[1].Key != "2" {
		t.Errorf("tie-break reordered causally-linked events: %q then %q", evs[0].Key, evs[1].Key)
	}
}

func TestSegmentationByMachineChange(t *testing.T) {
	// Alternating machines A,B,A produce three groups; A never rejoins
	// its earlier group.
	groups := mergeAndSegment([]Snapshot{
		snap("http://a", rawClick("machine-a", 100), rawClick("machine-a", 300)),
		snap("http://b", rawClick("machine-b", 200)),
	}, "", testMetrics())

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups for A,B,A interleaving, got %d", len(groups))
	}
	wantMachines := []string{"machine-a", "machine-b", "machine-a"}
	for i, g := range groups {
		if g.MachineName != wantMachines[i] {
			t.Errorf("group %d: expected %s, got %s", i, wantMachines[i], g.MachineName)
		}
		if g.ID != i+1 {
			t.Errorf("group %d: expected 1-based sequential id, got %d", i, g.ID)
		}
	}
}

func TestSegmentationPartitionInvariant(t *testing.T) {
	// Concatenating all groups reproduces the merged sequence exactly.
	groups := mergeAndSegment([]Snapshot{
		snap("http://a", rawClick("a", 10), rawClick("a", 40), rawClick("a", 50)),
		snap("http://b", rawClick("b", 20), rawClick("b", 30)),
	}, "", testMetrics())

	var flattened []int64
	for _, g := range groups {
		for _, ev := range g.Events {
			flattened = append(flattened, ev.Timestamp)
		}
	}
	want := []int64{10, 20, 30, 40, 50}
	if len(flattened) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(flattened))
	}
	for i := range want {
		if flattened[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], flattened[i])
		}
	}
}

func TestGroupRecordsOriginConnection(t *testing.T) {
	tt := event.ThinkTimeSettings{Enabled: true, MinThinkTime: 100, MaxThinkTime: 900}
	snapshots := []Snapshot{
		{Name: "b", BaseURL: "http://b", Mode: config.ModeStandard, Events: []event.RawEvent{rawClick("machine-b", 200)}},
		{Name: "a", BaseURL: "http://a", Mode: config.ModeStandard, ThinkTime: tt, Events: []event.RawEvent{rawClick("machine-a", 100)}},
	}

	groups := mergeAndSegment(snapshots, "", testMetrics())
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Origin != 1 || groups[0].BaseURL != "http://a" {
		t.Errorf("first group must record its origin connection, got index %d url %q", groups[0].Origin, groups[0].BaseURL)
	}
	if !groups[0].ThinkTime.Enabled || groups[0].ThinkTime.MaxThinkTime != 900 {
		t.Errorf("group must carry its origin's think-time policy, got %+v", groups[0].ThinkTime)
	}
}

func TestPerGroupModeAndDriverParameters(t *testing.T) {
	// Connections without base URLs are valid configuration; each group
	// must still compile under its own connection's mode and carry that
	// connection's driver parameters.
	snapshots := []Snapshot{
		{
			Name:             "desk-1",
			Mode:             config.ModeUser32,
			DriverParameters: map[string]any{"driver": "UiaDriver"},
			Events:           []event.RawEvent{rawClick("machine-a", 100)},
		},
		{
			Name:   "desk-2",
			Mode:   config.ModeStandard,
			Events: []event.RawEvent{rawClick("machine-b", 200)},
		},
	}

	doc, err := CompileSnapshots(snapshots, config.Default(), testMetrics())
	if err != nil {
		t.Fatalf("CompileSnapshots: %v", err)
	}

	jobs := doc.Stages[0].Jobs
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if got := jobs[0].Rules[0].PluginName; got != rules.PluginUser32Click {
		t.Errorf("machine-a group must compile under its own connection's mode: got %q, want %q", got, rules.PluginUser32Click)
	}
	if jobs[0].DriverParameters["driver"] != "UiaDriver" {
		t.Errorf("machine-a job must carry its connection's driver parameters, got %+v", jobs[0].DriverParameters)
	}
	if got := jobs[1].Rules[0].PluginName; got != rules.PluginClick {
		t.Errorf("machine-b group must compile under standard mode: got %q, want %q", got, rules.PluginClick)
	}
}

func TestOriginResolutionWithSharedBaseURL(t *testing.T) {
	snapshots := []Snapshot{
		{Name: "desk-1", BaseURL: "http://shared", Mode: config.ModeCoordinate, Events: []event.RawEvent{rawClick("machine-a", 100)}},
		{Name: "desk-2", BaseURL: "http://shared", Mode: config.ModeStandard, Events: []event.RawEvent{rawClick("machine-b", 200)}},
	}

	doc, err := CompileSnapshots(snapshots, config.Default(), testMetrics())
	if err != nil {
		t.Fatalf("CompileSnapshots: %v", err)
	}

	jobs := doc.Stages[0].Jobs
	if got := jobs[0].Rules[0].PluginName; got != rules.PluginUser32Click {
		t.Errorf("shared base URL must not bleed modes across groups: got %q", got)
	}
	if got := jobs[1].Rules[0].PluginName; got != rules.PluginClick {
		t.Errorf("machine-b group compiled under the wrong mode: got %q", got)
	}
}

func TestMergeDropsFilteredEvents(t *testing.T) {
	down := rawClick("a", 10)
	down.Phase = event.PhaseDown
	orphan := rawClick("a", 20)
	orphan.Chain.Path = nil
	self := rawClick("a", 30)
	self.Chain.Locator = "//div[@id='g4-designer']"

	groups := mergeAndSegment([]Snapshot{snap("http://a", down, orphan, self, rawClick("a", 40))}, "g4-designer", testMetrics())

	if len(groups) != 1 || len(groups[0].Events) != 1 {
		t.Fatalf("expected exactly one surviving event, got %+v", groups)
	}
	if groups[0].Events[0].Timestamp != 40 {
		t.Errorf("wrong event survived: %d", groups[0].Events[0].Timestamp)
	}
}

func TestCompileSnapshotsDeterministic(t *testing.T) {
	build := func() []Snapshot {
		return []Snapshot{
			snap("http://a", rawClick("machine-a", 100), rawKey("machine-a", 200, "h"), rawKey("machine-a", 250, "i")),
			snap("http://b", rawClick("machine-b", 150)),
		}
	}
	cfg := config.Default()
	cfg.AuthToken = "token-1"

	first, err := CompileSnapshots(build(), cfg, testMetrics())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := CompileSnapshots(build(), cfg, testMetrics())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("identical buffers must compile to byte-identical documents")
	}
}

func TestCompileSnapshotsEmptyRecording(t *testing.T) {
	cfg := config.Default()
	_, err := CompileSnapshots([]Snapshot{snap("http://a")}, cfg, testMetrics())
	if !errors.Is(err, automation.ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}
}
