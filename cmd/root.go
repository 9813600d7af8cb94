package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aiflownow/support-bot/internal/app"
	"github.com/aiflownow/support-bot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "support-bot",
	Short:        "Support ticket relay: Telegram intake, manager console, workflow webhook",
	RunE:         runServe,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, cfg)
}
