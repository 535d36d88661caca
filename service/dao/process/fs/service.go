// Package fs stores processes as JSON documents on any afs backed location.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/criteria"
)

const ext = ".json"

// Service implements dao.ProcessStore with one document per process.
type Service struct {
	baseURL string
	fs      afs.Service
	logger  hclog.Logger
	mu      sync.RWMutex
}

var _ dao.ProcessStore = (*Service)(nil)

// Save writes the process document.
func (s *Service) Save(ctx context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, p)
}

// Load reads the process document.
func (s *Service) Load(ctx context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(ctx, id)
}

// Update applies fn to the stored process and writes it back when fn succeeds.
func (s *Service) Update(ctx context.Context, id string, fn func(p *execution.Process) error) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = fn(p); err != nil {
		return nil, err
	}
	if err = s.write(ctx, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Delete removes the process document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.processURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check process %v: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete process %v: %w", id, err)
	}
	return nil
}

// List returns matching processes ordered by sequence number. Unreadable
// documents are logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	var ret []*execution.Process
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("failed to read process", "url", object.URL(), "error", err)
			continue
		}
		p := &execution.Process{}
		if err = json.Unmarshal(data, p); err != nil {
			s.logger.Warn("failed to decode process", "url", object.URL(), "error", err)
			continue
		}
		if criteria.MatchProcess(p, parameters) {
			ret = append(ret, p)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Seq < ret[j].Seq })
	return ret, nil
}

func (s *Service) read(ctx context.Context, id string) (*execution.Process, error) {
	URL := s.processURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check process %v: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read process %v: %w", id, err)
	}
	p := &execution.Process{}
	if err = json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode process %v: %w", id, err)
	}
	return p, nil
}

func (s *Service) write(ctx context.Context, p *execution.Process) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode process %v: %w", p.ID, err)
	}
	if err = s.fs.Upload(ctx, s.processURL(p.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save process %v: %w", p.ID, err)
	}
	return nil
}

func (s *Service) processURL(id string) string {
	return url.Join(s.baseURL, path.Base(id)+ext)
}

// New creates a store rooted at baseURL, creating the location when missing.
// A bare path is treated as a local directory.
func New(ctx context.Context, baseURL string, logger hclog.Logger) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("process store location is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, err := fs.Exists(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check %v: %w", baseURL, err)
	}
	if !exists {
		if err = fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs, logger: logger.Named("process.fs")}, nil
}
