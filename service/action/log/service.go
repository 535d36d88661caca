// Package log provides the "log" instruction writing a message to the
// structured log of the process.
package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/model/types"
)

const name = "log"

// MessageKey is the context variable holding the message.
const MessageKey = "message"

// Service logs messages.
type Service struct {
	logger hclog.Logger
}

// New creates a log service
func New(logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.Default()
	}
	return &Service{logger: logger.Named("instruction")}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "info",
			Description: "Logs the message variable at info level.",
			Input:       reflect.TypeOf(&types.Input{}),
			Output:      reflect.TypeOf(&types.Output{}),
		},
		{
			Name:        "warn",
			Description: "Logs the message variable at warn level.",
			Input:       reflect.TypeOf(&types.Input{}),
			Output:      reflect.TypeOf(&types.Output{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "info":
		return s.info, nil
	case "warn":
		return s.warn, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) info(ctx context.Context, in, out interface{}) error {
	return s.log(hclog.Info, in, out)
}

func (s *Service) warn(ctx context.Context, in, out interface{}) error {
	return s.log(hclog.Warn, in, out)
}

func (s *Service) log(level hclog.Level, in, out interface{}) error {
	input, ok := in.(*types.Input)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	if _, ok := out.(*types.Output); !ok {
		return types.NewInvalidOutputError(out)
	}
	message := ""
	if value, ok := input.Value(MessageKey); ok {
		message = fmt.Sprint(value)
	}
	args := []interface{}{}
	if input.Process != nil {
		args = append(args, "process", input.Process.ID, "service", input.Process.ServiceID)
	}
	if input.Rule != nil {
		args = append(args, "rule", input.Rule.ID)
	}
	s.logger.Log(level, message, args...)
	return nil
}
