package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

type stubRepository struct {
	summary *Summary
	err     error
	calls   int
}

func (s *stubRepository) Summary(ctx context.Context) (*Summary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func testCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, ttl), mr
}

func TestSummary_Uncached(t *testing.T) {
	repo := &stubRepository{summary: &Summary{TotalPatients: 42, OutstandingCents: 120_00}}
	srv := httptest.NewServer(NewHandler(repo, nil, logging.Default(), nil).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var s Summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalPatients != 42 {
		t.Errorf("expected 42 patients, got %d", s.TotalPatients)
	}
}

func TestSummary_SecondRequestServedFromCache(t *testing.T) {
	repo := &stubRepository{summary: &Summary{TotalPatients: 7, GeneratedAt: time.Now().UTC()}}
	cache, _ := testCache(t, 30*time.Second)
	srv := httptest.NewServer(NewHandler(repo, cache, logging.Default(), nil).Routes())
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		resp.Body.Close()
	}

	if repo.calls != 1 {
		t.Errorf("expected one repository call, got %d", repo.calls)
	}
}

func TestSummary_CacheExpires(t *testing.T) {
	repo := &stubRepository{summary: &Summary{TotalPatients: 7}}
	cache, mr := testCache(t, 30*time.Second)
	srv := httptest.NewServer(NewHandler(repo, cache, logging.Default(), nil).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	mr.FastForward(31 * time.Second)

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if repo.calls != 2 {
		t.Errorf("expected cache to expire and repository to be hit again, got %d calls", repo.calls)
	}
}

func TestSummary_RepositoryError(t *testing.T) {
	repo := &stubRepository{err: errors.New("connection refused")}
	srv := httptest.NewServer(NewHandler(repo, nil, logging.Default(), nil).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := testCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, &Summary{TotalPatients: 3})
	if _, ok := cache.Get(ctx); !ok {
		t.Fatal("expected cache hit after set")
	}
	cache.Invalidate(ctx)
	if _, ok := cache.Get(ctx); ok {
		t.Error("expected cache miss after invalidate")
	}
}
