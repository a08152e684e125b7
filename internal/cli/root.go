// Package cli provides the command-line interface for DataLens.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/internal/cli/commands"
	"github.com/leapstack-labs/datalens/internal/cli/output"
	"github.com/leapstack-labs/datalens/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datalens",
		Short: "DataLens - Column-level lineage and impact analysis",
		Long: `DataLens builds a column-level data lineage graph from database catalogs
and stored procedure definitions, then answers impact questions over it:
which procedures read or write a column, where PII flows, and how risky
a change to a column would be.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			rt := &commands.Runtime{
				Config:   cfg,
				Logger:   commands.NewLogger(cfg.Verbose),
				Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
			}
			cmd.SetContext(commands.WithRuntime(cmd.Context(), rt))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Column-level lineage and impact analysis
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./datalens.yaml)")
	rootCmd.PersistentFlags().String("state", "", "Path to the lineage state database")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (text|json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("dsn", "", "Catalog connection string")
	rootCmd.PersistentFlags().String("catalog-driver", "", "Catalog driver (postgres|file)")
	rootCmd.PersistentFlags().String("objects-file", "", "Path to a parsed objects dump")
	rootCmd.PersistentFlags().String("pii-list", "", "Path to the PII column list")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of parse workers")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("catalog-driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "file"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewCancelCommand())
	rootCmd.AddCommand(commands.NewDependentsCommand())
	rootCmd.AddCommand(commands.NewDependenciesCommand())
	rootCmd.AddCommand(commands.NewPIIPathsCommand())
	rootCmd.AddCommand(commands.NewRiskCommand())
	rootCmd.AddCommand(commands.NewReviewCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for DataLens.

To load completions:

Bash:
  $ source <(datalens completion bash)

Zsh:
  $ datalens completion zsh > "${fpath[1]}/_datalens"

Fish:
  $ datalens completion fish | source

PowerShell:
  PS> datalens completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
