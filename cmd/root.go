package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/gwsa/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI and the MCP server.
func SetVersion(v string) {
	version = v
}

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	profile string
	debug   bool
	logger  *slog.Logger
}

// Logger returns the configured logger, or the default one before
// PersistentPreRun has run.
func (g *globalOptions) Logger() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "gwsa",
		Short: "Google Workspace access for the command line and MCP clients",
		Long: `gwsa finds the Google Chat messages that still need your attention and
gives scripts and AI assistants read access to your Chat spaces.

It can run as:
  - A command-line tool (gwsa chat mentions)
  - An MCP (Model Context Protocol) server (gwsa serve)

Credentials are kept in named profiles; the built-in 'adc' profile uses
Application Default Credentials.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.logger = newLogger(cmd.ErrOrStderr(), g.debug)
			slog.SetDefault(g.logger)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "gwsa version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "Credential profile to use (default: the active profile)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging (or set LOG_LEVEL=debug)")

	rootCmd.AddCommand(newChatCmd(g))
	rootCmd.AddCommand(newProfilesCmd(g))
	rootCmd.AddCommand(newAuthCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())

	return rootCmd
}

// newLogger writes text logs to w so stdout stays clean for command output
// and the stdio transport.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gwsa version %s\n", version)
		},
	}
}
