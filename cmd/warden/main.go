// Package main is the entry point for the warden CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	dataDir    string
}

func (f *globalFlags) params() app.RunParams {
	return app.RunParams{
		ConfigPath: f.configPath,
		EnvFile:    f.envFile,
		DataDir:    f.dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "warden",
		Short:         "LLM-assisted moderation bot for Telegram groups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	pf.StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file (default ./.env when present)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Directory for persistent data (overrides data_dir)")

	root.AddCommand(
		versionCmd(),
		startCmd(flags),
		configCmd(flags),
		violationsCmd(flags),
		serviceCmd(flags),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "warden %s (commit: %s, built: %s)\n", version, commit, date)
	mods := core.GetModules()
	if len(mods) == 0 {
		fmt.Fprintln(w, "\nNo compiled modules.")
		return
	}
	fmt.Fprintln(w, "\nCompiled modules:")
	for _, mod := range mods {
		fmt.Fprintf(w, "  %s\n", mod.ID)
	}
}

func startCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start warden with all configured modules",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run(flags.params())
		},
	}
}
