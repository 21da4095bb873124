package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gravity-api/g4-recorder/internal/archive"
	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/metrics"
	"github.com/gravity-api/g4-recorder/internal/session"
	"github.com/gravity-api/g4-recorder/internal/viewer"
)

var (
	recordConfig      string
	recordMetricsAddr string
	recordNoArchive   bool
	recordNoViewer    bool
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordConfig, "config", "", "Path to recorder config YAML")
	recordCmd.Flags().StringVar(&recordMetricsAddr, "metrics-addr", "127.0.0.1:9464", "Listen address for Prometheus metrics")
	recordCmd.Flags().BoolVar(&recordNoArchive, "no-archive", false, "Skip archiving the compiled document")
	recordCmd.Flags().BoolVar(&recordNoViewer, "no-viewer", false, "Skip handing the document to the workflow viewer")
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Run a recording session",
	Long:  "Connects all configured capture connections and buffers interaction events.\nOn SIGINT/SIGTERM the recording is compiled into an automation document,\nhanded to the workflow viewer, and archived.",
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(recordConfig)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	m := metrics.New(prometheus.DefaultRegisterer)

	sess, err := session.New(cfg, m, log)
	if err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Hot-reload think-time settings while the session runs. Watches
	// the same path Load resolved, default location included.
	reloader, err := config.NewReloader(config.EffectivePath(recordConfig), sess.ApplyThinkTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	} else {
		go func() { _ = reloader.Run(ctx) }()
	}

	if recordMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(recordMetricsAddr, mux); err != nil {
				log.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "recording session %s started; stop with Ctrl-C\n", sess.ID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)

	doc, err := sess.Compile(ctx)
	if errors.Is(err, automation.ErrEmptyRecording) {
		fmt.Fprintln(os.Stderr, "no session recorded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("compile recording: %w", err)
	}

	if !recordNoViewer {
		client := viewer.New(cfg.Viewer)
		if err := client.Show(ctx, doc); err != nil {
			fmt.Fprintf(os.Stderr, "warning: viewer handoff failed: %v\n", err)
		}
	}

	if !recordNoArchive {
		path := cfg.ArchivePath
		if path == "" {
			path = archive.DefaultPath()
		}
		store, err := archive.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(sess.ID(), doc); err != nil {
			return err
		}
	}

	fmt.Printf("session %s compiled\n", sess.ID())
	return nil
}
