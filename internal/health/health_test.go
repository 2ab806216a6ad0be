package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(context.Context) error {
	return f.err
}

type fakeProgress struct {
	snapshot model.RunProgress
}

func (f fakeProgress) Progress() model.RunProgress {
	return f.snapshot
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestServer_Live(t *testing.T) {
	s := NewServer("0", zap.NewNop(), nil, nil)

	rec, body := get(t, s, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         DatabaseInterface
		wantCode   int
		wantStatus string
	}{
		{name: "no database", db: nil, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "database ok", db: fakeDB{}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "database down", db: fakeDB{err: errors.New("connection refused")}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("0", zap.NewNop(), tt.db, nil)

			rec, body := get(t, s, "/health")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestServer_Progress(t *testing.T) {
	t.Run("without run", func(t *testing.T) {
		s := NewServer("0", zap.NewNop(), nil, nil)
		rec, _ := get(t, s, "/progress")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("snapshot", func(t *testing.T) {
		snapshot := model.RunProgress{
			RunID:     "run-1",
			Phase:     model.PhaseProcessing,
			Total:     10,
			Done:      4,
			Failed:    1,
			Stalled:   1,
			StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		s := NewServer("0", zap.NewNop(), nil, fakeProgress{snapshot: snapshot})

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got model.RunProgress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, snapshot, got)
	})
}
