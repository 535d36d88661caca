package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/ruleflow"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "ruleflow",
		Short: "Ruleflow rule-driven process scheduler",
		Long: `Ruleflow drives processes through their lifecycle by evaluating the rules
attached to their service. Definitions (services, events, rules and resources)
are loaded from YAML bundles; processes are created, dispatched and inspected
through this CLI or the HTTP API started by 'ruleflow serve'.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "configuration file (YAML)")
	flags.String("store-dsn", "", "SQLite database path; enables the sqlite store")
	flags.Bool("json", false, "output JSON")
	flags.String("log-level", "warn", "log level")
	for _, name := range []string{"config", "store-dsn", "json", "log-level"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	v.SetEnvPrefix("RULEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newServeCommand(v),
		newLoadCommand(v),
		newCreateCommand(v),
		newDispatchCommand(v),
		newProcessCommand(v),
		newResourceCommand(v),
	)
	return root
}

func loadConfig(v *viper.Viper) (*ruleflow.Config, error) {
	cfg, err := ruleflow.LoadConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if dsn := v.GetString("store-dsn"); dsn != "" {
		cfg.Store = ruleflow.StoreConfig{Driver: ruleflow.DriverSQLite, DSN: dsn}
	}
	return cfg, cfg.Validate()
}

func openService(v *viper.Viper, cfg *ruleflow.Config) (*ruleflow.Service, error) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   cfg.Name,
		Level:  hclog.LevelFromString(v.GetString("log-level")),
		Output: os.Stderr,
	})
	return ruleflow.New(ruleflow.WithConfig(cfg), ruleflow.WithLogger(logger))
}

// withRuntime opens the service, runs fn and shuts the runtime down.
func withRuntime(cmd *cobra.Command, v *viper.Viper, fn func(rt *ruleflow.Runtime) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != ruleflow.DriverSQLite {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: memory store; state is discarded on exit (use --store-dsn)")
	}
	srv, err := openService(v, cfg)
	if err != nil {
		return err
	}
	rt := srv.Runtime()
	defer func() { _ = rt.Shutdown(cmd.Context()) }()
	return fn(rt)
}

func writeJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
