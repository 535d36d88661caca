// Package ruleflow provides a rule-driven process scheduler.
//
// Processes are instances of services. Each dispatch builds an evaluation
// context for a process, evaluates the rules attached to its service in
// order, runs the actions of the matching rules (spawning sub-processes,
// executing instructions, acquiring resources) and moves the process through
// its lifecycle state machine. The engine comes with pluggable layers:
//
//   - scheduler – per-process serialized dispatch
//   - rule      – ordered rule evaluation and action execution
//   - allocator – finite resource ledger
//   - processor – prioritized dispatch workers
//   - sweeper   – periodic stale-process and timer sweeps
//
// End-users typically interact with the engine via the Service facade
// exposed by the root package:
//
//	srv, _ := ruleflow.New()
//	rt := srv.Runtime()
//	_, _ = rt.LoadDefinitions(ctx, "file:///etc/ruleflow/bundle.yaml")
//	p, _ := rt.CreateProcess(ctx, &spawner.Request{ServiceID: "intake"})
//	outcome, _ := rt.Dispatch(ctx, p.ID, scheduler.TriggerCreated)
package ruleflow
