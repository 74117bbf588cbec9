// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/api imports the
// components for their side effect, then Mount() initialises every
// component with the shared Deps and mounts its Routes() under
// “/api/<name>”.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/config"
	"github.com/huelip/huelip/internal/session"
	"github.com/huelip/huelip/internal/user"
)

// Deps are the process-wide resources handed to every component.  Fields
// may be nil in tests; components check what they need in Init.
type Deps struct {
	DB       *sqlx.DB
	Users    *user.Store
	Sessions session.Store
	Config   *config.Config
	Log      *zap.SugaredLogger
}

// Component contract.
//
// Init runs once before Routes.  Routes returns a router that is mounted at
// “/api/<Name()>”, e.g:
//
//	r := chi.NewRouter()
//	r.Post("/signin", c.signin)
//	return r
type Component interface {
	Name() string
	Init(Deps) error
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second component
// with the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and mounts it on r.
func Mount(r chi.Router, deps Deps) error {
	if deps.Log == nil {
		deps.Log = zap.S()
	}
	for _, c := range All() {
		if err := c.Init(deps); err != nil {
			return fmt.Errorf("component %s: init: %w", c.Name(), err)
		}
		r.Mount("/api/"+c.Name(), c.Routes())
		deps.Log.Debugw("component mounted", "component", c.Name())
	}
	return nil
}
