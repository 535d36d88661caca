// Package meta loads definition bundles (services, events, rules and
// resources) from YAML documents at any afs supported URL.
package meta

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads bundles.
type Service struct {
	fs       afs.Service
	baseURL  string
	compiler Compiler
	options  []storage.Option
}

// Load reads, decodes and resolves the bundle at URL. Relative URLs are
// resolved against the base URL; a missing extension defaults to .yaml.
func (s *Service) Load(ctx context.Context, URL string) (*Bundle, error) {
	if s.baseURL != "" && url.IsRelative(URL) {
		URL = url.Join(s.baseURL, URL)
	}
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle from %s: %w", URL, err)
	}
	bundle, err := s.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundle from %s: %w", URL, err)
	}
	return bundle, nil
}

// Decode decodes and resolves YAML bundle data; ${env.KEY} references are
// expanded first.
func (s *Service) Decode(data []byte) (*Bundle, error) {
	bundle := &Bundle{}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), bundle); err != nil {
		return nil, err
	}
	if err := bundle.Resolve(s.compiler); err != nil {
		return nil, err
	}
	return bundle, nil
}

// New creates a bundle loader.
func New(fs afs.Service, baseURL string, opts ...Option) *Service {
	if fs == nil {
		fs = afs.New()
	}
	ret := &Service{fs: fs, baseURL: baseURL}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
