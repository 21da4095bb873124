package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gravity-api/g4-recorder/internal/archive"
	"github.com/gravity-api/g4-recorder/internal/config"
)

var sessionsConfig string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.PersistentFlags().StringVar(&sessionsConfig, "config", "", "Path to recorder config YAML")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect archived recording sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		metas, err := store.List()
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("no archived sessions")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%s  %s  jobs=%d rules=%d\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"), m.Jobs, m.Rules)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one archived automation document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := store.Get(args[0])
		if errors.Is(err, archive.ErrNotFound) {
			return fmt.Errorf("session %q not found", args[0])
		}
		if err != nil {
			return err
		}

		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		payload = append(payload, '\n')
		_, err = os.Stdout.Write(payload)
		return err
	},
}

func openArchive() (*archive.Store, error) {
	cfg, err := config.Load(sessionsConfig)
	if err != nil {
		return nil, err
	}
	path := cfg.ArchivePath
	if path == "" {
		path = archive.DefaultPath()
	}
	return archive.Open(path)
}
