// Package process provides instructions that act on the process graph:
// starting a sub-process, sending work back, and waiting for input.
package process

import (
	"context"
	"fmt"
	"reflect"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/runtime/execution"
)

const name = "process"

// Variables read from the instruction context.
const (
	ServiceKey  = "service"
	FieldsKey   = "fields"
	TargetKey   = "target"
	AwaitingKey = "awaiting"
)

// Payload keys written by the instructions.
const (
	StartedKey  = "started"
	SentBackKey = "sent_back_to"
	WaitingKey  = "awaiting"
)

// Spawner creates sub-processes.
type Spawner interface {
	Spawn(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error)
}

// Service implements process instructions.
type Service struct {
	spawner Spawner
}

// New creates a process instruction service
func New(spawner Spawner) *Service {
	return &Service{spawner: spawner}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "start",
			Description: "Starts a sub-process of the operand service.",
			Input:       reflect.TypeOf(&types.Input{}),
			Output:      reflect.TypeOf(&types.Output{}),
		},
		{
			Name:        "sendBack",
			Description: "Cancels remaining actions and queues the previous process for re-evaluation.",
			Input:       reflect.TypeOf(&types.Input{}),
			Output:      reflect.TypeOf(&types.Output{}),
		},
		{
			Name:        "wait",
			Description: "Keeps the process waiting for external input.",
			Input:       reflect.TypeOf(&types.Input{}),
			Output:      reflect.TypeOf(&types.Output{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch name {
	case "start":
		return s.start, nil
	case "sendBack":
		return s.sendBack, nil
	case "wait":
		return s.wait, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func bind(in, out interface{}) (*types.Input, *types.Output, error) {
	input, ok := in.(*types.Input)
	if !ok || input.Process == nil {
		return nil, nil, types.NewInvalidInputError(in)
	}
	output, ok := out.(*types.Output)
	if !ok {
		return nil, nil, types.NewInvalidOutputError(out)
	}
	return input, output, nil
}

func (s *Service) start(ctx context.Context, in, out interface{}) error {
	input, output, err := bind(in, out)
	if err != nil {
		return err
	}
	serviceID := input.Operand
	if value, ok := input.Value(ServiceKey); ok && serviceID == "" {
		serviceID = fmt.Sprint(value)
	}
	if serviceID == "" {
		return fmt.Errorf("operand service was empty")
	}
	var fields map[string]interface{}
	if value, ok := input.Value(FieldsKey); ok {
		fields, _ = value.(map[string]interface{})
	}
	child, err := s.spawner.Spawn(ctx, input.Process, serviceID, model.CloneMap(fields))
	if err != nil {
		return err
	}
	output.Spawned = append(output.Spawned, child.ID)
	output.Set(StartedKey, child.ID)
	return nil
}

func (s *Service) sendBack(ctx context.Context, in, out interface{}) error {
	input, output, err := bind(in, out)
	if err != nil {
		return err
	}
	target := input.Process.PreviousID
	if value, ok := input.Value(TargetKey); ok {
		target = fmt.Sprint(value)
	}
	if target == "" {
		return fmt.Errorf("process %v has no previous process", input.Process.ID)
	}
	output.Cancel = true
	output.FollowUp = append(output.FollowUp, target)
	output.Set(SentBackKey, target)
	return nil
}

func (s *Service) wait(ctx context.Context, in, out interface{}) error {
	input, output, err := bind(in, out)
	if err != nil {
		return err
	}
	awaiting := input.Operand
	if value, ok := input.Value(AwaitingKey); ok {
		awaiting = fmt.Sprint(value)
	}
	output.Wait = true
	if awaiting != "" {
		output.Set(WaitingKey, awaiting)
	}
	return nil
}
