// Package automation defines the executable document handed to the G4
// workflow viewer: one automation, one stage, jobs compiled from
// recorded groups, rules as the terminal units.
package automation

// Rule is one atomic executable action in a job. Once emitted it is
// never mutated.
type Rule struct {
	Type       string       `json:"type"`
	PluginName string       `json:"pluginName"`
	OnElement  string       `json:"onElement,omitempty"`
	Argument   string       `json:"argument,omitempty"`
	Context    *RuleContext `json:"context,omitempty"`
}

// RuleContext preserves the originating event's timing and position,
// required for think-time synthesis.
type RuleContext struct {
	Timestamp int64    `json:"timestamp"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
}

// Job is the compiled rule sequence for one buffer group. The last rule
// is always the fixed close-session action.
type Job struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	DriverParameters map[string]any `json:"driverParameters"`
	Rules            []Rule         `json:"rules"`
}

// StageReference names a stage.
type StageReference struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Stage groups jobs; a compile pass produces exactly one.
type Stage struct {
	Reference StageReference `json:"reference"`
	Jobs      []Job          `json:"jobs"`
}

// Authentication carries the engine token.
type Authentication struct {
	Token string `json:"token"`
}

// Automation is the root document. Built once per compile pass and
// handed off whole; never partially streamed.
type Automation struct {
	Authentication   Authentication `json:"authentication"`
	DriverParameters map[string]any `json:"driverParameters"`
	Settings         map[string]any `json:"settings"`
	Stages           []Stage        `json:"stages"`
}
