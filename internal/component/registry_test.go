package component

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stub struct {
	name    string
	initErr error
	inited  bool
}

func (s *stub) Name() string { return s.name }
func (s *stub) Init(Deps) error {
	s.inited = true
	return s.initErr
}
func (s *stub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(s.name)) })
	return r
}

func withRegistry(t *testing.T, cs ...Component) {
	t.Helper()
	mu.Lock()
	saved := registry
	registry = map[string]Component{}
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})
	for _, c := range cs {
		Register(c)
	}
}

func TestMount(t *testing.T) {
	b, a := &stub{name: "beta"}, &stub{name: "alpha"}
	withRegistry(t, b, a)

	if all := All(); all[0].Name() != "alpha" || all[1].Name() != "beta" {
		t.Fatalf("All not sorted: %v, %v", all[0].Name(), all[1].Name())
	}

	r := chi.NewRouter()
	if err := Mount(r, Deps{}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if !a.inited || !b.inited {
		t.Fatal("Init not called")
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beta/ping", nil))
	if rec.Body.String() != "beta" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestMountInitError(t *testing.T) {
	withRegistry(t, &stub{name: "broken", initErr: errors.New("boom")})
	if err := Mount(chi.NewRouter(), Deps{}); err == nil {
		t.Fatal("init error swallowed")
	}
}
