// Package mcp exposes the recorder to the editor as MCP tools:
// start/stop a recording session, inspect connection state, and list
// archived sessions.
package mcp

import (
	"context"
	"log/slog"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gravity-api/g4-recorder/internal/archive"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/metrics"
	"github.com/gravity-api/g4-recorder/internal/session"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath  string
	ArchivePath string
}

// Server wraps the MCP SDK server around a recording session.
type Server struct {
	mcpServer *mcpsdk.Server
	cfg       Config
	appCfg    *config.Config
	store     *archive.Store
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu   sync.Mutex
	sess *session.Session
}

// New creates the recorder MCP server.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	appCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	archivePath := cfg.ArchivePath
	if archivePath == "" {
		if appCfg.ArchivePath != "" {
			archivePath = appCfg.ArchivePath
		} else {
			archivePath = archive.DefaultPath()
		}
	}
	store, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		appCfg:  appCfg,
		store:   store,
		metrics: metrics.New(prometheus.NewRegistry()),
		log:     log,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "g4-recorder",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the archive and any live session.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.sess != nil {
		s.sess.Teardown()
		s.sess = nil
	}
	s.mu.Unlock()
	return s.store.Close()
}

// registerTools adds all recorder tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "g4_start_recording",
		Description: "Start a recording session: connect all configured capture connections and begin buffering interaction events.",
	}, s.handleStart)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "g4_stop_recording",
		Description: "Stop the recording session and compile buffered events into an automation document. Tears down capture connections.",
	}, s.handleStop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "g4_recording_status",
		Description: "Report each capture connection's lifecycle state and buffered event count.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "g4_list_sessions",
		Description: "List archived recording sessions with job and rule counts.",
	}, s.handleSessions)
}
