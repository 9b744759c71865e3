// Command steamlens runs the Steam library access layer: a diagnostics
// server over the resilient caller, and one-shot session lookups.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Resilient access to the Steam Web API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./cmd/steamlens/config.yml or ./config.yml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newServeCmd(opts), newSessionCmd(opts), newVersionCmd())
	return cmd
}

// load reads the config and applies flag overrides.
func (o *rootOptions) load() (*app, error) {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, err
		}
	}
	return newApp(cfg)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnostics server (health, stats, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg, srv, err := a.lifecycle()
			if err != nil {
				return err
			}
			if err := reg.StartAll(ctx); err != nil {
				_ = reg.StopAll(context.Background())
				return err
			}
			logger.Get("cli").Info("steamlens ready", logger.Fields(
				"addr", srv.Addr(),
				"version", version.Get().Short(),
				"components", reg.Names(),
			))

			<-ctx.Done()
			return reg.StopAll(context.Background())
		},
	}
}

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "session <appid>",
		Short: "Fetch the session context of a game and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("appid must be a number: %q", args[0])
			}
			a, err := opts.load()
			if err != nil {
				return err
			}

			session, err := a.steam.SessionContext(cmd.Context(), appID)
			if err != nil {
				return err
			}
			out := map[string]any{"session": session}
			if withStats {
				out["stats"] = a.caller.Stats()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&withStats, "stats", false, "include caller stats in the output")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
