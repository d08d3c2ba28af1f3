package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type stubMongo struct{ err error }

func (s stubMongo) Ping(context.Context, *readpref.ReadPref) error { return s.err }

type stubRedis struct{ err error }

func (s stubRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "ping")
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func TestHealthHandler_Liveness(t *testing.T) {
	e := echo.New()
	h := NewHealthHandler("test")
	h.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	rec := httptest.NewRecorder()
	if err := h.Liveness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["status"] != "OK" || resp["environment"] != "test" || resp["timestamp"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestReadiness(t *testing.T) {
	cases := []struct {
		name   string
		mongo  MongoPinger
		redis  RedisPinger
		status int
		body   string
	}{
		{"mongo only, up", stubMongo{}, nil, http.StatusOK, "ok"},
		{"all up", stubMongo{}, stubRedis{}, http.StatusOK, "ok"},
		{"mongo down", stubMongo{err: errors.New("no primary")}, nil, http.StatusServiceUnavailable, "unavailable"},
		{"redis down is degraded only", stubMongo{}, stubRedis{err: errors.New("refused")}, http.StatusOK, "ok"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			h := NewHealthDependenciesHandler(tc.mongo, tc.redis, zerolog.Nop())
			if err := h.Readiness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if decode(t, rec)["status"] != tc.body {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}
