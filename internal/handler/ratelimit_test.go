package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	fail    bool
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.fail {
		return redis.NewIntResult(0, errors.New("dial tcp: connection refused"))
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(_ context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(f.expires[key], nil)
}

func serveLimited(rl *RateLimiter, limit int, remoteAddr string) *httptest.ResponseRecorder {
	h := rl.Limit("login", limit, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/admins/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	fc := newFakeCounter()
	rl := &RateLimiter{redis: fc, log: quietLogger()}

	for i := 0; i < 2; i++ {
		if rec := serveLimited(rl, 2, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := serveLimited(rl, 2, "10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if fc.expires["rate_limit:login:10.0.0.1"] != time.Minute {
		t.Fatalf("window not set: %v", fc.expires)
	}

	if rec := serveLimited(rl, 2, "10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d", rec.Code)
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	fc := newFakeCounter()
	fc.fail = true
	rl := &RateLimiter{redis: fc, log: quietLogger()}

	for i := 0; i < 5; i++ {
		if rec := serveLimited(rl, 1, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}

func TestRateLimiter_DisabledWithoutClient(t *testing.T) {
	rl := NewRateLimiter(nil, quietLogger())
	for i := 0; i < 5; i++ {
		if rec := serveLimited(rl, 1, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	var none *RateLimiter
	if rec := serveLimited(none, 1, "10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Fatalf("nil limiter status = %d", rec.Code)
	}
}
