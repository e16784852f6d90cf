package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vocabquiz/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export users, vocabulary and progress to a JSON backup",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		db, err := openSQLDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		outputPath, _ := cmd.Flags().GetString("output")
		if outputPath == "" {
			outputPath = defaultBackupFilename(time.Now())
		}

		var writer io.Writer = cmd.OutOrStdout()
		if outputPath != "-" {
			if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			file, createErr := os.Create(outputPath)
			if createErr != nil {
				return fmt.Errorf("failed to create backup file: %w", createErr)
			}
			defer func() {
				if cerr := file.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			writer = file
		}

		backup, err := service.NewBackupService(db, logger).Export(ctx, writer)
		if err != nil {
			return err
		}

		if outputPath != "-" {
			cmd.PrintErrf("Exported %d users, %d words, %d progress records to %s\n",
				len(backup.Users), len(backup.Words), len(backup.Progress), outputPath)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a JSON backup into the database",
	Long: `Restore a JSON backup. Existing users are kept; words and progress
records with the same keys are overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		inputPath, _ := cmd.Flags().GetString("input")
		if inputPath == "" {
			return fmt.Errorf("--input is required (use - for stdin)")
		}

		var reader io.Reader = cmd.InOrStdin()
		if inputPath != "-" {
			file, err := os.Open(inputPath)
			if err != nil {
				return fmt.Errorf("failed to open backup: %w", err)
			}
			defer file.Close()
			reader = file
		}

		db, err := openSQLDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := service.NewBackupService(db, logger).Import(ctx, reader)
		if err != nil {
			return err
		}

		cmd.Printf("Restored %d users (%d already present), %d words, %d progress records\n",
			stats.Users, stats.SkippedUsers, stats.Words, stats.Progress)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, restoreCmd)

	exportCmd.Flags().StringP("output", "o", "", "backup file path, - for stdout (default: vocab_backup_YYYYMMDD_HHMMSS.json)")
	restoreCmd.Flags().StringP("input", "i", "", "backup file path, - for stdin")
}

func defaultBackupFilename(now time.Time) string {
	return fmt.Sprintf("vocab_backup_%s.json", now.Format("20060102_150405"))
}
