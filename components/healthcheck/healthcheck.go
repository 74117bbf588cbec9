// components/healthcheck/healthcheck.go
//
// Liveness probe mounted at “/api/healthcheck”.  It answers 200 whenever
// the process can serve HTTP; it does not touch the database.
package healthcheck

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huelip/huelip/internal/component"
	"github.com/huelip/huelip/internal/envelope"
)

// compile-time assertion
var _ component.Component = (*Comp)(nil)

// MsgRunning is the probe's message.
const MsgRunning = "Server is running"

// Comp implements component.Component; no state needed.
type Comp struct{}

func (c *Comp) Name() string                { return "healthcheck" }
func (c *Comp) Init(_ component.Deps) error { return nil }

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		envelope.WriteOK(w, http.StatusOK, nil, MsgRunning)
	})
	return r
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}
