// Package session owns one recording session: the map of capture
// connections, the merge/segment pass, and the single-in-flight compile
// that turns buffered events into an automation document.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/connection"
	"github.com/gravity-api/g4-recorder/internal/event"
	"github.com/gravity-api/g4-recorder/internal/metrics"
	"github.com/gravity-api/g4-recorder/internal/rules"
)

// ErrCompileInFlight reports a second compile initiated while one is
// running. The compile pass is not re-entrant; callers serialize.
var ErrCompileInFlight = errors.New("a compile pass is already in flight")

// Session is an explicitly owned recording session. Connections are
// created with it and torn down by the compile pass that consumes it.
type Session struct {
	id        string
	cfg       *config.Config
	conns     map[string]*connection.Connection
	metrics   *metrics.Metrics
	log       *slog.Logger
	compiling atomic.Bool
}

// New builds a session from configuration. No network activity happens
// until Start.
func New(cfg *config.Config, m *metrics.Metrics, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(cfg.Connections) == 0 {
		return nil, fmt.Errorf("no capture connections configured")
	}

	validator, err := event.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("create event validator: %w", err)
	}

	conns := make(map[string]*connection.Connection, len(cfg.Connections))
	for _, cc := range cfg.Connections {
		conns[cc.Name] = connection.New(cc, validator, m, log)
	}

	id := uuid.NewString()
	return &Session{
		id:      id,
		cfg:     cfg,
		conns:   conns,
		metrics: m,
		log:     log.With("session", id),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start connects every capture connection.
func (s *Session) Start() error {
	for name, conn := range s.conns {
		if err := conn.Start(s.cfg.ServerURL); err != nil {
			s.Teardown()
			return fmt.Errorf("start connection %q: %w", name, err)
		}
	}
	return nil
}

// Status reports each connection's lifecycle state and buffer depth.
func (s *Session) Status() map[string]ConnectionStatus {
	out := make(map[string]ConnectionStatus, len(s.conns))
	for name, conn := range s.conns {
		out[name] = ConnectionStatus{
			State:    conn.State().String(),
			Buffered: conn.BufferLen(),
		}
	}
	return out
}

// ConnectionStatus is one connection's observable state.
type ConnectionStatus struct {
	State    string `json:"state"`
	Buffered int    `json:"buffered"`
}

// ApplyThinkTime propagates reloaded think-time settings to the named
// connections without touching their buffers.
func (s *Session) ApplyThinkTime(cfg *config.Config) {
	for _, cc := range cfg.Connections {
		if conn, ok := s.conns[cc.Name]; ok {
			conn.SetThinkTime(cc.ThinkTime)
		}
	}
}

// Teardown disconnects every connection. Idempotent.
func (s *Session) Teardown() {
	for _, conn := range s.conns {
		conn.Disconnect()
	}
}

// Compile is the stop/finalize pass: snapshot all buffers, merge,
// segment, compile each group to a job, and assemble the document.
// All-or-nothing from the caller's perspective: on any failure no
// document is returned and buffers stay intact, but connections are
// torn down either way — the capture session ends with the pass that
// consumes it. Buffers clear only after successful assembly.
func (s *Session) Compile(ctx context.Context) (doc automation.Automation, err error) {
	if !s.compiling.CompareAndSwap(false, true) {
		return automation.Automation{}, ErrCompileInFlight
	}
	defer s.compiling.Store(false)
	defer s.Teardown()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compile pass panicked: %v", r)
			s.log.Error("compile pass failed", "error", err)
		}
	}()

	snapshots := make([]Snapshot, 0, len(s.conns))
	for _, cc := range s.cfg.Connections {
		conn := s.conns[cc.Name]
		live := conn.Config()
		snapshots = append(snapshots, Snapshot{
			Name:             live.Name,
			BaseURL:          live.BaseURL,
			Mode:             live.Mode,
			ThinkTime:        live.ThinkTime,
			DriverParameters: live.DriverParameters,
			Events:           conn.Snapshot(),
		})
	}

	doc, err = CompileSnapshots(snapshots, s.cfg, s.metrics)
	if err != nil {
		return automation.Automation{}, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return automation.Automation{}, cerr
	}

	for _, conn := range s.conns {
		conn.ClearBuffer()
	}
	s.metrics.Compiled()
	return doc, nil
}

// CompileSnapshots runs the full merge → segment → compile → assemble
// pipeline over already-taken snapshots. Deterministic: identical
// snapshots produce byte-identical documents. Also the entry point for
// offline compilation of saved buffers.
func CompileSnapshots(snapshots []Snapshot, cfg *config.Config, m *metrics.Metrics) (automation.Automation, error) {
	groups := mergeAndSegment(snapshots, cfg.SelfMarker, m)
	if len(groups) == 0 {
		return automation.Automation{}, automation.ErrEmptyRecording
	}

	jobs := make([]automation.Job, 0, len(groups))
	for _, group := range groups {
		snap := snapshots[group.Origin]
		job := rules.Compile(group, snap.Mode)
		if len(snap.DriverParameters) > 0 {
			job.DriverParameters = snap.DriverParameters
		}
		m.Rules(len(job.Rules))
		jobs = append(jobs, job)
	}

	primary := snapshots[groups[0].Origin].DriverParameters
	if len(primary) == 0 {
		primary = cfg.DriverParameters
	}

	return automation.Assemble(jobs, automation.AssembleConfig{
		AuthToken:               cfg.AuthToken,
		PrimaryDriverParameters: primary,
		Settings:                cfg.Settings,
	})
}
