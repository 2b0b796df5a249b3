package realtime

import (
	"errors"
	"sync"

	"github.com/hilthontt/kindred/infrastructure/logger"
)

// Server is the live transport handle. Only the registry and the emitter
// hold it.
type Server interface {
	EmitToRoom(room, event string, payload any) error
	DisconnectRoom(room, reason string)
}

type registryState int

const (
	stateUninitialized registryState = iota
	stateReady
)

func (s registryState) String() string {
	if s == stateReady {
		return "ready"
	}
	return "uninitialized"
}

var (
	ErrNilServer          = errors.New("server handle is nil")
	ErrAlreadyInitialized = errors.New("registry already holds a server handle")
)

// Registry holds at most one live server handle for the process.
type Registry struct {
	mu     sync.RWMutex
	state  registryState
	server Server
	logger *logger.Logger
}

func NewRegistry(logger *logger.Logger) *Registry {
	return &Registry{logger: logger}
}

func (r *Registry) Init(server Server) error {
	if server == nil {
		return ErrNilServer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateReady {
		return ErrAlreadyInitialized
	}
	r.server = server
	r.state = stateReady

	r.logger.Info("realtime registry ready")
	return nil
}

// Get returns the server handle. It logs a warning and reports false when
// the registry is not ready.
func (r *Registry) Get() (Server, bool) {
	r.mu.RLock()
	state, server := r.state, r.server
	r.mu.RUnlock()

	if state != stateReady {
		r.logger.Warn("realtime server requested before initialization")
		return nil, false
	}
	return server, true
}

func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == stateReady
}

// Teardown drops the handle so emissions during shutdown become no-ops.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateUninitialized {
		return
	}
	r.server = nil
	r.state = stateUninitialized
	r.logger.Info("realtime registry torn down")
}
