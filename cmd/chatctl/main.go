package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chat-orchestrator/internal/bulkload"
	"chat-orchestrator/internal/profile"
)

var (
	version = "dev"

	// Global flags
	verbose    bool
	cursorFile string

	// Upload command flags
	serverURL string
	ownerID   string
	indexName string
	rps       int
	dryRun    bool

	// Profiles command flags
	profilesFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "chatctl",
	Short:   "Operational tooling for the chat orchestrator",
	Version: version,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <directory>",
	Short: "Bulk-upload documents for indexing",
	Long: `Upload every file in a directory to the orchestrator's document API.

Progress is tracked in a cursor file, so an interrupted run resumes from
where it stopped.

Examples:
  # Upload all documents in ./docs for a user
  chatctl upload ./docs --owner user-42

  # Dry run to see what would be uploaded
  chatctl upload ./docs --owner user-42 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Profile configuration helpers",
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a profile configuration file offline",
	RunE:  validateProfiles,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current upload cursor status",
	RunE:  showStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset-cursor",
	Short: "Reset the cursor to start from beginning",
	RunE:  resetCursor,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cursorFile, "cursor-file", "upload-cursor.json", "cursor file path")

	uploadCmd.Flags().StringVar(&serverURL, "server", "http://localhost:9020", "orchestrator base URL")
	uploadCmd.Flags().StringVar(&ownerID, "owner", "", "owner user id for the uploaded documents")
	uploadCmd.Flags().StringVar(&indexName, "index", "", "target index name (server default when empty)")
	uploadCmd.Flags().IntVar(&rps, "rps", 2, "upload requests per second")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be uploaded without uploading")

	profilesValidateCmd.Flags().StringVarP(&profilesFile, "file", "f", "", "profile configuration file to validate")
	_ = profilesValidateCmd.MarkFlagRequired("file")
	profilesCmd.AddCommand(profilesValidateCmd)

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}

func validateProfiles(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(profilesFile)
	if err != nil {
		return fmt.Errorf("read profile file: %w", err)
	}
	count, err := profile.ValidateDocument(raw)
	if err != nil {
		return fmt.Errorf("invalid profile configuration: %w", err)
	}
	fmt.Printf("%s: %d profiles, all valid\n", profilesFile, count)
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	if ownerID == "" {
		return fmt.Errorf("--owner is required")
	}

	cfg := bulkload.DefaultConfig()
	cfg.ServerURL = serverURL
	cfg.Directory = args[0]
	cfg.OwnerID = ownerID
	cfg.IndexName = indexName
	cfg.CursorFile = cursorFile
	cfg.RequestsPerSecond = rps
	cfg.DryRun = dryRun

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting bulk upload",
		slog.String("server", cfg.ServerURL),
		slog.String("directory", cfg.Directory),
		slog.String("owner", cfg.OwnerID),
		slog.String("cursor_file", cfg.CursorFile),
		slog.Bool("dry_run", cfg.DryRun),
	)

	runner, err := bulkload.NewRunner(cfg, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer runner.Close()

	// Setup signal handler for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", slog.String("signal", sig.String()))
		cancel()
	}()

	if err := runner.Run(ctx); err != nil {
		if err == context.Canceled {
			logger.Info("upload interrupted, cursor saved for resume")
			return nil
		}
		return fmt.Errorf("run upload: %w", err)
	}

	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := bulkload.DefaultConfig()
	cfg.CursorFile = cursorFile

	runner, err := bulkload.NewRunner(cfg, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer runner.Close()

	cursor, err := runner.GetCursor()
	if err != nil {
		return fmt.Errorf("get cursor: %w", err)
	}

	if cursor.IsEmpty() {
		fmt.Println("No cursor found. Upload will start from the beginning.")
		return nil
	}

	fmt.Printf("Cursor Status:\n")
	fmt.Printf("  Version:         %d\n", cursor.Version)
	fmt.Printf("  Last File:       %s\n", cursor.LastFile)
	fmt.Printf("  Processed Count: %d\n", cursor.ProcessedCount)
	fmt.Printf("  Updated At:      %s\n", cursor.UpdatedAt.Format(time.RFC3339))

	return nil
}

func resetCursor(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := bulkload.DefaultConfig()
	cfg.CursorFile = cursorFile

	runner, err := bulkload.NewRunner(cfg, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer runner.Close()

	if err := runner.ResetCursor(); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}

	logger.Info("cursor reset successfully")
	return nil
}
