package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"frugal/internal/cli"
	"frugal/internal/config"
	applog "frugal/internal/log"
)

// app carries what every subcommand needs once the root has initialized.
type app struct {
	envFile string
	cfg     *config.Config
	logger  *applog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "frugal",
		Short:         "Terminal dashboard and chat for the FrugalAgent expense assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envFile != "" {
				cli.LoadEnvFile(a.envFile)
			} else {
				cli.LoadEnvFile()
			}
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment from this file instead of ./.env")

	root.AddCommand(newChatCmd(a), newWatchCmd(a), newDevServerCmd(a))
	return root
}
