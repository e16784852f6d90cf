package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vocabquiz/internal/app"
	"vocabquiz/internal/config"
	"vocabquiz/internal/database"
	"vocabquiz/internal/logging"
	"vocabquiz/internal/models"
	"vocabquiz/internal/service"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vocabctl",
	Short: "Arabic vocabulary quiz server and tools",
	Long: `vocabctl runs the vocabulary quiz server and the tools around it:
schema migrations, spreadsheet imports, backups, progress reports and a
terminal quiz.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.LogLevel = level
		}
		var err error
		logger, err = logging.New(cfg)
		return err
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openSQLDatabase opens the local database; tools that write tables directly
// cannot run against the remote backend
func openSQLDatabase(ctx context.Context) (*database.DB, error) {
	if cfg.Backend != config.BackendSQL && cfg.Backend != "" {
		return nil, fmt.Errorf("this command needs BACKEND=%s, not %q", config.BackendSQL, cfg.Backend)
	}
	return app.OpenDatabase(ctx, cfg, logger)
}

var errQuit = errors.New("quit")

// prompt prints label and reads one trimmed line. EOF reads as errQuit.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, io.EOF) && line != "":
		return line, nil
	case errors.Is(err, io.EOF):
		return "", errQuit
	default:
		return "", err
	}
}

// addCredentialFlags registers --email and --password on cmd
func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("email", "e", "", "account email (prompted when empty)")
	cmd.Flags().StringP("password", "p", "", "account password (prompted when empty)")
}

// signIn authenticates with the credential flags, prompting for missing values
func signIn(cmd *cobra.Command, auth *service.AuthService, in *bufio.Reader) (*models.AuthSession, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	var err error
	if email == "" {
		if email, err = prompt(in, cmd.OutOrStdout(), "Email: "); err != nil {
			return nil, err
		}
	}
	if password == "" {
		if password, err = prompt(in, cmd.OutOrStdout(), "Password: "); err != nil {
			return nil, err
		}
	}

	session, err := auth.SignIn(cmd.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return nil, errors.New("invalid email or password")
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return session, nil
}
