package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gravity-api/g4-recorder/internal/mcp"
)

var (
	mcpConfig  string
	mcpArchive string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpConfig, "config", "", "Path to recorder config YAML")
	mcpCmd.Flags().StringVar(&mcpArchive, "archive", "", "Path to session archive database")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the editor control surface over MCP stdio",
	Long:  "Exposes the recorder as MCP tools (start/stop recording, status, archived\nsessions) for desktop-editor integration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		srv, err := mcp.New(mcp.Config{ConfigPath: mcpConfig, ArchivePath: mcpArchive}, log)
		if err != nil {
			return err
		}
		defer srv.Close()
		return srv.Run(cmd.Context())
	},
}
