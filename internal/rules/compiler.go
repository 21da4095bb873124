package rules

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/event"
)

// jobNamespace seeds deterministic job IDs so identical input buffers
// compile to byte-identical documents.
var jobNamespace = uuid.MustParse("7a3c1f6e-4b2d-4e8a-9c5f-0d6e1b8a2c43")

// Compile consumes one buffer group and produces its job. The group's
// events are walked once from the front: pointer events translate
// directly, keyboard events enter a sub-scan that collapses consecutive
// keys, and a fixed close-session rule terminates every job. Think-time
// synthesis runs as a post-pass when the group's policy enables it.
func Compile(group event.BufferGroup, mode config.Mode) automation.Job {
	rules := make([]automation.Rule, 0, len(group.Events)+1)

	events := group.Events
	for i := 0; i < len(events); {
		switch events[i].Kind {
		case event.KindPointer:
			rules = append(rules, pointerRule(events[i], mode))
			i++
		case event.KindKeyboard:
			var consumed int
			rules, consumed = appendKeyboardRules(rules, events[i:], mode)
			i += consumed
		default:
			// Normalization admits only the two kinds; skip anything else.
			i++
		}
	}

	// Every job is self-terminating regardless of what was recorded.
	rules = append(rules, automation.Rule{Type: ActionRule, PluginName: PluginCloseSession})

	if group.ThinkTime.Enabled {
		rules = insertThinkTime(rules, group.ThinkTime)
	}

	return automation.Job{
		ID:          uuid.NewSHA1(jobNamespace, []byte(fmt.Sprintf("%d/%s", group.ID, group.MachineName))).String(),
		Name:        fmt.Sprintf("Recording %d (%s)", group.ID, group.MachineName),
		Description: fmt.Sprintf("Interactions recorded on %s", group.MachineName),
		Rules:       rules,
	}
}

// pointerRule translates one pointer event into one rule. Plugin
// selection is keyed by button identity and mode; in coordinate mode
// the rule carries literal coordinates instead of a locator. An
// unresolvable button class degrades to the no-op marker.
func pointerRule(ev event.NormalizedEvent, mode config.Mode) automation.Rule {
	plugin, ok := clickPlugin(ev.Button, mode)
	if !ok {
		return automation.Rule{
			Type:       ActionRule,
			PluginName: PluginNoAction,
			Context:    pointerContext(ev),
		}
	}

	rule := automation.Rule{
		Type:       ActionRule,
		PluginName: plugin,
		Context:    pointerContext(ev),
	}
	if mode == config.ModeCoordinate {
		rule.Argument = fmt.Sprintf("%.0f,%.0f", ev.X, ev.Y)
	} else {
		rule.OnElement = ev.Locator
	}
	return rule
}

func pointerContext(ev event.NormalizedEvent) *automation.RuleContext {
	x, y := ev.X, ev.Y
	return &automation.RuleContext{Timestamp: ev.Timestamp, X: &x, Y: &y}
}

// clickPlugin resolves the click action for a button under a mode.
// Coordinate mode uses the low-level plugins: literal coordinates
// require input injection, not locator resolution.
func clickPlugin(button event.Button, mode config.Mode) (string, bool) {
	lowLevel := mode == config.ModeUser32 || mode == config.ModeCoordinate
	switch button {
	case event.ButtonLeft:
		if lowLevel {
			return PluginUser32Click, true
		}
		return PluginClick, true
	case event.ButtonMiddle:
		if lowLevel {
			return PluginUser32MiddleClick, true
		}
		return PluginMiddleClick, true
	case event.ButtonRight:
		if lowLevel {
			return PluginUser32ContextClick, true
		}
		return PluginContextClick, true
	default:
		return "", false
	}
}

// appendKeyboardRules consumes the leading run of consecutive keyboard
// events, collapsing printable keys into a buffer. A named special key
// flushes the accumulated buffer first, then emits its own dedicated
// rule; the end of the run flushes whatever remains. Returns the
// extended rule list and the number of events consumed.
func appendKeyboardRules(rules []automation.Rule, events []event.NormalizedEvent, mode config.Mode) ([]automation.Rule, int) {
	var buf []string
	var bufTS int64

	flush := func() {
		if len(buf) == 0 {
			return
		}
		rules = append(rules, typeSequenceRule(strings.Join(buf, ""), bufTS, mode))
		buf = buf[:0]
	}

	n := 0
	for n < len(events) && events[n].Kind == event.KindKeyboard {
		ev := events[n]
		key := ev.Key
		switch {
		case key == keySpace:
			if len(buf) == 0 {
				bufTS = ev.Timestamp
			}
			buf = append(buf, " ")
		case IsSpecialKey(key):
			flush()
			rules = append(rules, singleKeyRule(key, ev.Timestamp, mode))
		case len([]rune(key)) == 1:
			if len(buf) == 0 {
				bufTS = ev.Timestamp
			}
			buf = append(buf, key)
		default:
			// Malformed multi-character payload; drop it.
		}
		n++
	}
	flush()

	return rules, n
}

func singleKeyRule(key string, timestamp int64, mode config.Mode) automation.Rule {
	plugin := PluginSendKey
	if mode == config.ModeUser32 {
		plugin = PluginUser32SendKey
	}
	return automation.Rule{
		Type:       ActionRule,
		PluginName: plugin,
		Argument:   key,
		Context:    &automation.RuleContext{Timestamp: timestamp},
	}
}

func typeSequenceRule(text string, timestamp int64, mode config.Mode) automation.Rule {
	plugin := PluginSendKeys
	if mode == config.ModeUser32 {
		plugin = PluginUser32SendKeys
	}
	return automation.Rule{
		Type:       ActionRule,
		PluginName: plugin,
		Argument:   text,
		Context:    &automation.RuleContext{Timestamp: timestamp},
	}
}

// insertThinkTime synthesizes pause rules between adjacent rules whose
// timestamp delta exceeds the minimum, capped at the maximum. Rules
// without context (the close-session terminator) never get a pause
// around them, and nothing trails the final rule.
func insertThinkTime(rules []automation.Rule, tt event.ThinkTimeSettings) []automation.Rule {
	out := make([]automation.Rule, 0, len(rules))
	for i := range rules {
		out = append(out, rules[i])
		if i == len(rules)-1 {
			break
		}
		cur, next := rules[i].Context, rules[i+1].Context
		if cur == nil || next == nil {
			continue
		}
		delta := next.Timestamp - cur.Timestamp
		if delta <= tt.MinThinkTime {
			continue
		}
		if delta > tt.MaxThinkTime {
			delta = tt.MaxThinkTime
		}
		out = append(out, waitRule(delta))
	}
	return out
}

// waitRule labels the pause with its duration in seconds.
func waitRule(ms int64) automation.Rule {
	return automation.Rule{
		Type:       ActionRule,
		PluginName: PluginWaitFlow,
		Argument:   fmt.Sprintf("%.2f", float64(ms)/1000),
	}
}
