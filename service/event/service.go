// Package event delivers typed, fire-and-forget events such as process
// transition notifications to registered listeners.
package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/service/messaging"
	"github.com/viant/ruleflow/service/messaging/memory"
)

// VendorMemory is the in-process queue vendor.
const VendorMemory messaging.Vendor = "memory"

type Service struct {
	typedPublishers   map[reflect.Type]any
	typedListener     map[reflect.Type]stopper
	mux               *sync.RWMutex
	queueVendor       messaging.Vendor
	memNewQueueConfig func(name string) memory.Config
	logger            hclog.Logger
}

type stopper interface{ Stop() }

func New(queueVendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		queueVendor:     queueVendor,
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]stopper),
		mux:             &sync.RWMutex{},
		logger:          hclog.Default().Named("event"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	switch queueVendor {
	case VendorMemory:
		if ret.memNewQueueConfig == nil {
			ret.memNewQueueConfig = func(string) memory.Config { return memory.DefaultConfig() }
		}
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", queueVendor)
	}
	return ret, nil
}

// Close stops all listeners.
func (s *Service) Close() {
	s.mux.Lock()
	listeners := s.typedListener
	s.typedListener = make(map[reflect.Type]stopper)
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
}

func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.queueVendor {
	case VendorMemory:
		return memory.NewQueue[T](s.memNewQueueConfig(name), nil), nil
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.queueVendor)
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// SetListenerOf replaces the listener of events of type T.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) error {
	key := keyOf[T]()
	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	listener := NewListener[T](publisher, handler, s.logger)
	s.mux.Lock()
	previous, ok := s.typedListener[key]
	s.typedListener[key] = listener
	s.mux.Unlock()
	if ok {
		previous.Stop()
	}
	listener.Start()
	return nil
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](s, key.String())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	s.typedPublishers[key] = publisher
	return publisher, nil
}
