package services

import (
	"sync"

	"go.uber.org/zap"
)

type cleanupStep struct {
	name string
	fn   func() error
}

// ResourceManager guarantees teardown in safe dependency order regardless of
// which controllers were actually activated. Steps run in registration
// order; a failing step is logged and the remaining steps still run, so
// cleanup is total-effort rather than all-or-nothing.
type ResourceManager struct {
	mu      sync.Mutex
	steps   []cleanupStep
	cleaned bool

	logger *zap.SugaredLogger
}

// NewResourceManager creates an empty manager.
func NewResourceManager(log *zap.Logger) *ResourceManager {
	return &ResourceManager{
		logger: log.Named("resources").Sugar(),
	}
}

// Register appends a named cleanup step. Steps execute in registration
// order, so callers register in teardown order.
func (m *ResourceManager) Register(name string, fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, cleanupStep{name: name, fn: fn})
}

// Cleanup runs every registered step once. Idempotent: subsequent calls are
// no-ops. Errors and panics in individual steps never stop the sweep.
func (m *ResourceManager) Cleanup() {
	m.mu.Lock()
	if m.cleaned {
		m.mu.Unlock()
		return
	}
	m.cleaned = true
	steps := m.steps
	m.steps = nil
	m.mu.Unlock()

	for _, step := range steps {
		m.run(step)
	}
}

func (m *ResourceManager) run(step cleanupStep) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("cleanup step panicked", "step", step.name, "panic", r)
		}
	}()

	if err := step.fn(); err != nil {
		m.logger.Warnw("cleanup step failed", "step", step.name, "error", err)
	}
}
