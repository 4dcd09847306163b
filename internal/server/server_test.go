package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gridlab/gridcore/internal/metrics"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingRoute struct{}

func (pingRoute) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	s.Engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name         string
		health       HealthChecker
		wantCode     int
		wantDatabase string
	}{
		{"no database", nil, http.StatusOK, "not configured"},
		{"database up", pinger{}, http.StatusOK, "connected"},
		{"database down", pinger{err: errors.New("refused")}, http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Mode: "release"}, tt.health, Build{CatalogFingerprint: "abc", Sources: 2})
			resp := serve(s, "/health")
			require.Equal(t, tt.wantCode, resp.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantDatabase, body["database"])
				require.Equal(t, "abc", body["catalog"])
			} else {
				require.Equal(t, "unhealthy", body["status"])
			}
		})
	}
}

func TestNew_RegistersRoutes(t *testing.T) {
	metrics.Init()
	s := New(Options{Mode: "release", MetricsPath: "/metrics"}, nil, Build{}, pingRoute{})

	require.Equal(t, http.StatusOK, serve(s, "/v1/ping").Code)

	resp := serve(s, "/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "go_goroutines")

	noMetrics := New(Options{Mode: "release"}, nil, Build{})
	require.Equal(t, http.StatusNotFound, serve(noMetrics, "/metrics").Code)
}
