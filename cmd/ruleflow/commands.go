package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/ruleflow"
	"github.com/viant/ruleflow/internal/server"
	"github.com/viant/ruleflow/metrics"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/spawner"
	"gopkg.in/yaml.v3"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run dispatch workers and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if definitions, _ := cmd.Flags().GetString("definitions"); definitions != "" {
				cfg.Server.Definitions = definitions
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := metrics.Setup(cfg.Name)
			if err != nil {
				return err
			}
			defer provider.Stop(context.Background())

			srv, err := openService(v, cfg)
			if err != nil {
				return err
			}
			rt := srv.Runtime()
			defer func() { _ = rt.Shutdown(context.Background()) }()
			if cfg.Server.Definitions != "" {
				if _, err = rt.LoadDefinitions(ctx, cfg.Server.Definitions); err != nil {
					return err
				}
			}
			if err = rt.Start(ctx); err != nil {
				return err
			}
			api, err := server.New(server.Config{Engine: rt, Addr: cfg.Server.Addr, BasePath: cfg.Server.Context})
			if err != nil {
				return err
			}
			listener, err := api.Start()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ruleflow listening on %s\n", listener.Addr())
			<-ctx.Done()
			return api.Stop(context.Background())
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	cmd.Flags().String("definitions", "", "definition bundle URL loaded at startup")
	return cmd
}

func newLoadCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "load <url>",
		Short: "Load a definition bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				bundle, err := rt.LoadDefinitions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), bundle)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d services, %d rules, %d resources\n",
					len(bundle.Services), len(bundle.Rules), len(bundle.Resources))
				return nil
			})
		},
	}
}

func newCreateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <service>",
		Short: "Create a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("set")
			business, err := parseValues(pairs)
			if err != nil {
				return err
			}
			priority, _ := cmd.Flags().GetUint8("priority")
			operator, _ := cmd.Flags().GetString("operator")
			entity, _ := cmd.Flags().GetString("entity")
			dispatch, _ := cmd.Flags().GetBool("dispatch")
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				p, err := rt.CreateProcess(cmd.Context(), &spawner.Request{
					ServiceID:  args[0],
					Business:   business,
					Priority:   priority,
					OperatorID: operator,
					EntityID:   entity,
				})
				if err != nil {
					return err
				}
				if dispatch {
					if _, err = rt.Dispatch(cmd.Context(), p.ID, scheduler.TriggerCreated); err != nil {
						return err
					}
					if p, err = rt.Process(cmd.Context(), p.ID); err != nil {
						return err
					}
				}
				return renderProcesses(cmd, v, []*execution.Process{p})
			})
		},
	}
	cmd.Flags().StringArray("set", nil, "business value key=value (repeatable)")
	cmd.Flags().Uint8("priority", 0, "dispatch priority")
	cmd.Flags().String("operator", "", "operator id")
	cmd.Flags().String("entity", "", "entity id")
	cmd.Flags().Bool("dispatch", false, "evaluate the process right away")
	return cmd
}

func newDispatchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <process-id>",
		Short: "Evaluate a process once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, _ := cmd.Flags().GetString("trigger")
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				outcome, err := rt.Dispatch(cmd.Context(), args[0], trigger)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), outcome)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Process", "Trigger", "From", "State", "Fired", "Error"})
				fired := 0
				if outcome.Result != nil {
					fired = len(outcome.Result.Fired)
				}
				tw.AppendRow(table.Row{outcome.ProcessID, outcome.Trigger, outcome.From, outcome.State, fired, outcome.Error})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().String("trigger", scheduler.TriggerUpdated, "trigger: "+strings.Join(scheduler.Triggers, ", "))
	return cmd
}

func newProcessCommand(v *viper.Viper) *cobra.Command {
	process := &cobra.Command{Use: "process", Short: "Inspect processes"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var parameters []*dao.Parameter
			if state, _ := cmd.Flags().GetString("state"); state != "" {
				parsed, ok := execution.ParseState(state)
				if !ok {
					return fmt.Errorf("invalid state: %q", state)
				}
				parameters = append(parameters, dao.NewParameter(dao.ParamState, string(parsed)))
			}
			if service, _ := cmd.Flags().GetString("service"); service != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamServiceID, service))
			}
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				list, err := rt.Processes(cmd.Context(), parameters...)
				if err != nil {
					return err
				}
				return renderProcesses(cmd, v, list)
			})
		},
	}
	list.Flags().String("state", "", "filter by state")
	list.Flags().String("service", "", "filter by service id")
	get := &cobra.Command{
		Use:   "get <process-id>",
		Short: "Show a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				p, err := rt.Process(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, dao.ErrNotFound) {
						return fmt.Errorf("process %v not found", args[0])
					}
					return err
				}
				return renderProcesses(cmd, v, []*execution.Process{p})
			})
		},
	}
	process.AddCommand(list, get)
	return process
}

func newResourceCommand(v *viper.Viper) *cobra.Command {
	resource := &cobra.Command{Use: "resource", Short: "Inspect the resource ledger"}
	resource.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, v, func(rt *ruleflow.Runtime) error {
				list, err := rt.Resources(cmd.Context())
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Name", "Capacity", "Usage", "Available"})
				for _, r := range list {
					tw.AppendRow(table.Row{r.ID, r.Name, r.Capacity, r.CurrentUsage, r.Available()})
				}
				tw.Render()
				return nil
			})
		},
	})
	return resource
}

func renderProcesses(cmd *cobra.Command, v *viper.Viper, list []*execution.Process) error {
	if v.GetBool("json") {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"ID", "Seq", "Service", "State", "Priority", "Parent", "Updated"})
	for _, p := range list {
		tw.AppendRow(table.Row{p.ID, p.Seq, p.ServiceID, p.State, p.Priority, p.ParentID, p.UpdatedAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

// parseValues decodes key=value pairs; values are YAML scalars so numbers
// and booleans keep their type.
func parseValues(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ret := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, text, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, expected key=value", pair)
		}
		var value interface{}
		if err := yaml.Unmarshal([]byte(text), &value); err != nil {
			return nil, fmt.Errorf("invalid value for %v: %w", key, err)
		}
		ret[key] = value
	}
	return ret, nil
}
