package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/session"
)

// --- Input/Output types ---

// StartInput defines parameters for the g4_start_recording tool.
type StartInput struct{}

// StartOutput confirms the session started.
type StartOutput struct {
	SessionID   string `json:"session_id"`
	Connections int    `json:"connections"`
}

// StopInput defines parameters for the g4_stop_recording tool.
type StopInput struct {
	// Archive controls whether the compiled document is persisted.
	Archive bool `json:"archive,omitempty" jsonschema:"persist the compiled document in the local archive"`
}

// StopOutput carries the compiled automation document.
type StopOutput struct {
	SessionID string          `json:"session_id,omitempty"`
	Empty     bool            `json:"empty,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// StatusInput defines parameters for the g4_recording_status tool.
type StatusInput struct{}

// StatusOutput reports per-connection state.
type StatusOutput struct {
	Recording   bool                                `json:"recording"`
	SessionID   string                              `json:"session_id,omitempty"`
	Connections map[string]session.ConnectionStatus `json:"connections,omitempty"`
}

// SessionsInput defines parameters for the g4_list_sessions tool.
type SessionsInput struct{}

// SessionsOutput lists archived sessions.
type SessionsOutput struct {
	Sessions json.RawMessage `json:"sessions"`
}

// --- Handlers ---

func (s *Server) handleStart(ctx context.Context, req *mcpsdk.CallToolRequest, input StartInput) (*mcpsdk.CallToolResult, StartOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		return nil, StartOutput{}, fmt.Errorf("a recording session is already running (%s)", s.sess.ID())
	}

	sess, err := session.New(s.appCfg, s.metrics, s.log)
	if err != nil {
		return nil, StartOutput{}, err
	}
	if err := sess.Start(); err != nil {
		return nil, StartOutput{}, err
	}

	s.sess = sess
	return nil, StartOutput{
		SessionID:   sess.ID(),
		Connections: len(s.appCfg.Connections),
	}, nil
}

func (s *Server) handleStop(ctx context.Context, req *mcpsdk.CallToolRequest, input StopInput) (*mcpsdk.CallToolResult, StopOutput, error) {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return nil, StopOutput{}, fmt.Errorf("no recording session is running")
	}

	doc, err := sess.Compile(ctx)
	if errors.Is(err, automation.ErrEmptyRecording) {
		return nil, StopOutput{Empty: true}, nil
	}
	if err != nil {
		return nil, StopOutput{}, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, StopOutput{}, fmt.Errorf("marshal document: %w", err)
	}

	if input.Archive {
		if err := s.store.Save(sess.ID(), doc); err != nil {
			s.log.Warn("failed to archive session", "session", sess.ID(), "error", err)
		}
	}

	return nil, StopOutput{SessionID: sess.ID(), Document: payload}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil {
		return nil, StatusOutput{Recording: false}, nil
	}
	return nil, StatusOutput{
		Recording:   true,
		SessionID:   sess.ID(),
		Connections: sess.Status(),
	}, nil
}

func (s *Server) handleSessions(ctx context.Context, req *mcpsdk.CallToolRequest, input SessionsInput) (*mcpsdk.CallToolResult, SessionsOutput, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, SessionsOutput{}, err
	}
	payload, err := json.Marshal(metas)
	if err != nil {
		return nil, SessionsOutput{}, err
	}
	return nil, SessionsOutput{Sessions: payload}, nil
}
