package event

import "testing"

func pointerUp(machine string, ts int64) RawEvent {
	return RawEvent{
		Timestamp:   ts,
		MachineName: machine,
		Kind:        KindPointer,
		Phase:       PhaseUp,
		Button:      ButtonLeft,
		Chain: Chain{
			Locator: "//button[@id='ok']",
			Path: []UIElement{
				{Bounds: Bounds{X: 0, Y: 0, Width: 800, Height: 600}},
				{Bounds: Bounds{X: 10, Y: 20, Width: 100, Height: 30}},
			},
		},
	}
}

func TestNormalizeAcceptsReleaseEvent(t *testing.T) {
	n, ok := Normalize(pointerUp("host-a", 100), "g4-designer")
	if !ok {
		t.Fatal("expected release event to normalize")
	}
	if n.Locator != "//button[@id='ok']" {
		t.Errorf("unexpected locator %q", n.Locator)
	}
	if n.Phase != PhaseUp {
		t.Errorf("expected PhaseUp, got %v", n.Phase)
	}
}

func TestNormalizeRejectsDownPhase(t *testing.T) {
	raw := pointerUp("host-a", 100)
	raw.Phase = PhaseDown
	if _, ok := Normalize(raw, ""); ok {
		t.Error("down-phase event must be rejected")
	}
}

func TestNormalizeRejectsEmptyChain(t *testing.T) {
	raw := pointerUp("host-a", 100)
	raw.Chain.Path = nil
	if _, ok := Normalize(raw, ""); ok {
		t.Error("event without a trigger element must be rejected")
	}
}

func TestNormalizeRejectsSelfOriginatedEvent(t *testing.T) {
	raw := pointerUp("host-a", 100)
	raw.Chain.Locator = "//div[@class='g4-designer-toolbar']//button"
	if _, ok := Normalize(raw, "g4-designer"); ok {
		t.Error("event from the recorder's own surface must be rejected")
	}
}

func TestNormalizeSelfFilterDisabledWithEmptyMarker(t *testing.T) {
	raw := pointerUp("host-a", 100)
	raw.Chain.Locator = "//div[@class='g4-designer-toolbar']//button"
	if _, ok := Normalize(raw, ""); !ok {
		t.Error("empty marker must disable self-filtering")
	}
}

func TestElementIDComposedFromTriggerBounds(t *testing.T) {
	n, ok := Normalize(pointerUp("host-a", 100), "")
	if !ok {
		t.Fatal("expected event to normalize")
	}
	// height, x, y, width of the deepest (trigger) element
	if n.ElementID != "30.10.20.100" {
		t.Errorf("unexpected element id %q", n.ElementID)
	}
}

func TestTriggerIsDeepestElement(t *testing.T) {
	raw := pointerUp("host-a", 100)
	trigger, ok := raw.Trigger()
	if !ok {
		t.Fatal("expected trigger")
	}
	if trigger.Bounds.Width != 100 {
		t.Errorf("expected the last path element, got bounds %+v", trigger.Bounds)
	}
}
