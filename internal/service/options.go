package service

import (
	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/metrics"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// Option configures a Service.
type Option func(*Service)

// WithNormalizer replaces the default URL normalizer.
func WithNormalizer(n linktree.Normalizer) Option {
	return func(s *Service) {
		s.normalizer = n
	}
}

// WithTreeConfig sets the tree-shaping defaults applied when a request
// leaves them unset.
func WithTreeConfig(cfg config.TreeConfig) Option {
	return func(s *Service) {
		s.defaults = cfg
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}
