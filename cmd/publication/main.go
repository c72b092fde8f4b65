package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bspub/internal/app"
	"bspub/internal/config"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	metricsAddr string
}

func (o *rootOptions) appOptions() app.Options {
	return app.Options{ConfigPath: o.configPath, MetricsAddr: o.metricsAddr}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Breast screening publication tables",
		Long: `bspub builds the breast screening programme publication from the KC62 and
KC63 record feeds. Every output in the catalog is pivoted, derived and
validated, then written into a copy of its Excel template or to CSV.`,
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./bspub.yaml or ./configs/bspub.yaml)")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newPreviewCmd(opts))
	root.AddCommand(newCatalogCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", config.AppName, config.AppVersion)
		},
	}
}
