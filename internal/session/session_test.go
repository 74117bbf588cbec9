package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func TestNewSession(t *testing.T) {
	s := New("u1", "203.0.113.7", "curl/8", time.Hour)
	if s.ID == "" || s.Token == "" || s.ID == s.Token {
		t.Fatalf("bad identifiers: %+v", s)
	}
	if s.Expired(s.CreatedAt) {
		t.Fatal("fresh session already expired")
	}
	if !s.Expired(s.CreatedAt.Add(time.Hour)) {
		t.Fatal("session should expire at ExpiresAt")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2)

	s := New("u1", "", "", time.Hour)
	if err := m.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(ctx, s.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	got.UserID = "changed"
	if again, _ := m.Get(ctx, s.Token); again.UserID != "u1" {
		t.Fatal("store returned an alias")
	}

	if err := m.Delete(ctx, s.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, s.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v", err)
	}
	if err := m.Delete(ctx, "unknown"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	s := New("u1", "", "", time.Minute)
	m.Create(ctx, s)

	m.now = func() time.Time { return s.ExpiresAt.Add(time.Second) }
	if _, err := m.Get(ctx, s.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session err = %v", err)
	}
	if m.Len() != 0 {
		t.Fatal("expired session not dropped")
	}
}

func TestMemoryStoreBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2)
	a, b, c := New("a", "", "", time.Hour), New("b", "", "", time.Hour), New("c", "", "", time.Hour)
	m.Create(ctx, a)
	m.Create(ctx, b)
	m.Create(ctx, c)

	if m.Len() != 2 {
		t.Fatalf("len = %d", m.Len())
	}
	if _, err := m.Get(ctx, a.Token); !errors.Is(err, ErrNotFound) {
		t.Fatal("oldest session should be evicted")
	}
}

func TestCookies(t *testing.T) {
	s := New("u1", "", "", time.Hour)

	rec := httptest.NewRecorder()
	SetCookie(rec, httptest.NewRequest(http.MethodPost, "/", nil), s, true)
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].Name != CookieName || c[0].Value != s.Token || !c[0].HttpOnly || !c[0].Secure {
		t.Fatalf("cookie = %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := Token(req); ok {
		t.Fatal("token found on bare request")
	}
	req.AddCookie(&http.Cookie{Name: CookieName, Value: s.Token})
	if tok, ok := Token(req); !ok || tok != s.Token {
		t.Fatalf("Token = %q, %v", tok, ok)
	}

	rec = httptest.NewRecorder()
	ClearCookie(rec, req)
	c = rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 || c[0].Value != "" {
		t.Fatalf("clear cookie = %+v", c)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HUELIP_TEST_REDIS")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 3})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	r, err := NewRedisStore(client, "huelip:test:session:")
	if err != nil {
		t.Fatal(err)
	}

	s := New("u1", "198.51.100.1", "test", time.Minute)
	if err := r.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Delete(ctx, s.Token)

	got, err := r.Get(ctx, s.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "u1" || got.IPAddress != "198.51.100.1" || !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatalf("round trip: %+v", got)
	}
	if ttl := client.TTL(ctx, r.key(s.Token)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	if err := r.Delete(ctx, s.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, s.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v", err)
	}

	expired := New("u1", "", "", -time.Second)
	if err := r.Create(ctx, expired); err == nil {
		t.Fatal("expired session accepted")
	}
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	if _, err := NewRedisStore(nil, ""); err == nil {
		t.Fatal("nil client accepted")
	}
}
