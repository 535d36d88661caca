package meta

import "github.com/viant/afs/storage"

// Option configures the loader.
type Option func(*Service)

// WithCompiler validates rule predicates while loading.
func WithCompiler(compiler Compiler) Option {
	return func(s *Service) {
		s.compiler = compiler
	}
}

// WithFsOptions sets storage options used when downloading bundles, for
// example an embedded file system.
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.options = options
	}
}
