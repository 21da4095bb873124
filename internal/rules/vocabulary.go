// Package rules compiles one buffer group at a time into an executable
// job: pointer actions, collapsed keyboard actions, synthesized waits,
// and the fixed session-close terminator.
package rules

// ActionRule is the only rule type the engine executes.
const ActionRule = "Action"

// Plugin action names are the wire contract with the execution engine.
// Closed set: the compiler never constructs a name from strings.
const (
	PluginClick        = "InvokeClick"
	PluginMiddleClick  = "InvokeMiddleClick"
	PluginContextClick = "InvokeContextClick"

	PluginUser32Click        = "SendUser32Click"
	PluginUser32MiddleClick  = "SendUser32MiddleClick"
	PluginUser32ContextClick = "SendUser32ContextClick"

	PluginSendKey  = "SendKey"
	PluginSendKeys = "SendKeys"

	PluginUser32SendKey  = "SendUser32Key"
	PluginUser32SendKeys = "SendUser32Keys"

	PluginWaitFlow     = "InvokeWaitFlow"
	PluginCloseSession = "CloseSession"

	// PluginNoAction marks an event whose button class could not be
	// resolved; compilation degrades instead of aborting the job.
	PluginNoAction = "NoAction"
)

// keySpace is the named space key; it normalizes to a literal space in
// a type sequence rather than getting a dedicated action.
const keySpace = "Space"

// specialKeys is the allow-list of named keys that compile to a
// dedicated single-key action instead of joining a type sequence.
var specialKeys = map[string]bool{
	"Enter":      true,
	"Tab":        true,
	"Escape":     true,
	"Backspace":  true,
	"Delete":     true,
	"Insert":     true,
	"Home":       true,
	"End":        true,
	"PageUp":     true,
	"PageDown":   true,
	"ArrowUp":    true,
	"ArrowDown":  true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"F1":         true,
	"F2":         true,
	"F3":         true,
	"F4":         true,
	"F5":         true,
	"F6":         true,
	"F7":         true,
	"F8":         true,
	"F9":         true,
	"F10":        true,
	"F11":        true,
	"F12":        true,
}

// IsSpecialKey reports whether key is on the named-key allow-list.
func IsSpecialKey(key string) bool {
	return specialKeys[key]
}
