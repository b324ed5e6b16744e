// Command ecgannotator is a desktop tool for labeling multi-lead ECG records
// as malignant, benign, or uncertain, with a second "recheck" pass over the
// uncertain ones. Running it without a subcommand opens the GUI; the
// subcommands cover the headless chores (stats, validate, screenshots,
// config).
package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var dataDirFlag string
	var annotationsFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &dataDirFlag, &annotationsFlag)

	rootCmd := &cobra.Command{
		Use:           "ecgannotator",
		Short:         "ECG annotation desktop tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runGUI(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory holding one subfolder per record")
	rootCmd.PersistentFlags().StringVar(&annotationsFlag, "annotations", "", "Annotation table path (default annotations.csv)")

	rootCmd.AddCommand(newScreenshotsCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
