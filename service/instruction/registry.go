// Package instruction provides the registry of named instructions rules can
// invoke as their action.
package instruction

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/ruleflow/model/types"
)

// Registry holds instruction services by name.
type Registry struct {
	services map[string]types.Service
	mux      sync.RWMutex
}

// Lookup returns a service by name
func (r *Registry) Lookup(name string) types.Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Register registers a service
func (r *Registry) Register(service types.Service) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.services[service.Name()] = service
}

// Names returns registered instruction names as "service.method".
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	var ret []string
	for name, service := range r.services {
		for _, sig := range service.Methods() {
			ret = append(ret, name+"."+sig.Name)
		}
	}
	sort.Strings(ret)
	return ret
}

// Resolve returns the executable of an instruction.
func (r *Registry) Resolve(name string) (types.Executable, error) {
	serviceName, method := Split(name)
	service := r.Lookup(serviceName)
	if service == nil {
		return nil, types.NewServiceNotFoundError(serviceName)
	}
	if method == "" {
		methods := service.Methods()
		if len(methods) == 0 {
			return nil, types.NewMethodNotFoundError(name)
		}
		method = methods[0].Name
	}
	return service.Method(method)
}

// Execute runs an instruction.
func (r *Registry) Execute(ctx context.Context, name string, input *types.Input) (*types.Output, error) {
	executable, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	output := &types.Output{}
	if err = executable(ctx, input, output); err != nil {
		return nil, fmt.Errorf("instruction %v: %w", name, err)
	}
	return output, nil
}

// Split splits "service.method" at the last dot.
func Split(name string) (string, string) {
	name = strings.TrimSpace(name)
	if index := strings.LastIndex(name, "."); index != -1 {
		return name[:index], name[index+1:]
	}
	return name, ""
}

// New creates a registry with the supplied services.
func New(services ...types.Service) *Registry {
	ret := &Registry{services: make(map[string]types.Service)}
	for _, service := range services {
		if service != nil {
			ret.Register(service)
		}
	}
	return ret
}
