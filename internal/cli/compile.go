package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/event"
	"github.com/gravity-api/g4-recorder/internal/metrics"
	"github.com/gravity-api/g4-recorder/internal/session"
)

var (
	compileConfig string
	compileInputs []string
	compileOutput string
)

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVar(&compileConfig, "config", "", "Path to recorder config YAML")
	compileCmd.Flags().StringArrayVar(&compileInputs, "input", nil, "Buffered-event JSON file, one per connection (repeatable)")
	compileCmd.Flags().StringVar(&compileOutput, "output", "", "Write the automation document here instead of stdout")
	_ = compileCmd.MarkFlagRequired("input")
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile saved event buffers offline",
	Long:  "Reads buffered-event JSON files (one per capture connection) and runs the\nsame merge, segment, and compile pipeline as a live session. Useful for\nreplaying and diffing recordings deterministically.",
	RunE:  runCompile,
}

// bufferFile is the on-disk shape of one connection's saved buffer.
type bufferFile struct {
	BaseURL          string                  `json:"baseUrl"`
	Mode             string                  `json:"mode"`
	ThinkTime        event.ThinkTimeSettings `json:"thinkTime"`
	DriverParameters map[string]any          `json:"driverParameters"`
	Events           []json.RawMessage       `json:"events"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(compileConfig)
	if err != nil {
		return err
	}

	validator, err := event.NewValidator()
	if err != nil {
		return err
	}

	snapshots := make([]session.Snapshot, 0, len(compileInputs))
	for _, path := range compileInputs {
		snap, err := loadBufferFile(path, validator)
		if err != nil {
			return err
		}
		snapshots = append(snapshots, snap)
	}

	m := metrics.New(prometheus.NewRegistry())
	doc, err := session.CompileSnapshots(snapshots, cfg, m)
	if errors.Is(err, automation.ErrEmptyRecording) {
		fmt.Fprintln(os.Stderr, "no session recorded")
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	payload = append(payload, '\n')

	if compileOutput == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(compileOutput, payload, 0o644)
}

func loadBufferFile(path string, validator *event.Validator) (session.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("read buffer file %q: %w", path, err)
	}

	var bf bufferFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse buffer file %q: %w", path, err)
	}

	mode, err := config.ParseMode(bf.Mode)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("buffer file %q: %w", path, err)
	}

	snap := session.Snapshot{
		Name:             path,
		BaseURL:          bf.BaseURL,
		Mode:             mode,
		ThinkTime:        bf.ThinkTime,
		DriverParameters: bf.DriverParameters,
	}

	dropped := 0
	for _, raw := range bf.Events {
		ev, err := validator.Decode(raw)
		if err != nil {
			dropped++
			continue
		}
		snap.Events = append(snap.Events, ev)
	}
	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %s: dropped %d malformed events\n", path, dropped)
	}
	return snap, nil
}
