package automation

import "errors"

// ErrEmptyRecording reports that no groups were produced by a compile
// pass. Informational: the caller skips assembly, nothing was recorded.
var ErrEmptyRecording = errors.New("no session recorded")

// AssembleConfig carries the session-level inputs of assembly.
type AssembleConfig struct {
	AuthToken string

	// PrimaryDriverParameters belong to the connection that captured
	// the earliest event overall; the first job inherits them.
	PrimaryDriverParameters map[string]any

	Settings         map[string]any
	StageName        string
	StageDescription string
}

// Assemble wraps compiled jobs into a single automation document with
// one stage, preserving segmenter order. The first job inherits the
// primary driver parameters unless its own connection already supplied
// overrides; subsequent jobs default to empty parameters. Pure: no
// network, no viewer.
func Assemble(jobs []Job, cfg AssembleConfig) (Automation, error) {
	if len(jobs) == 0 {
		return Automation{}, ErrEmptyRecording
	}

	primary := cfg.PrimaryDriverParameters
	if primary == nil {
		primary = map[string]any{}
	}

	for i := range jobs {
		if i == 0 {
			if len(jobs[0].DriverParameters) == 0 {
				jobs[0].DriverParameters = primary
			}
			continue
		}
		if jobs[i].DriverParameters == nil {
			jobs[i].DriverParameters = map[string]any{}
		}
	}

	settings := cfg.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	name := cfg.StageName
	if name == "" {
		name = "Recorded Stage"
	}
	description := cfg.StageDescription
	if description == "" {
		description = "Stage generated from a recording session"
	}

	return Automation{
		Authentication:   Authentication{Token: cfg.AuthToken},
		DriverParameters: jobs[0].DriverParameters,
		Settings:         settings,
		Stages: []Stage{{
			Reference: StageReference{Name: name, Description: description},
			Jobs:      jobs,
		}},
	}, nil
}
