package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	schemaCalls int
	schemaErr   error
	upsertErr   error
	rows        []model.PlaylistDuration
}

func (f *fakeRepo) EnsureSchema(context.Context) error {
	f.schemaCalls++
	return f.schemaErr
}

func (f *fakeRepo) Upsert(_ context.Context, rows []model.PlaylistDuration) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.rows = append(f.rows, rows...)
	return len(rows), nil
}

func (f *fakeRepo) List(context.Context, int) ([]model.PlaylistDuration, error) {
	return f.rows, nil
}

func TestMirror_Sync(t *testing.T) {
	repo := &fakeRepo{}
	m := NewMirror(repo, zap.NewNop())

	image := "https://i.scdn.co/image/a"
	entries := []model.Entry{
		{Name: "A", Result: model.ProcessingResult{
			ID:              "a",
			Duration:        model.Duration{Hours: 1, Minutes: 1, Seconds: 1},
			Image:           &image,
			TracksProcessed: 20,
			Listened:        true,
		}},
		{Name: "legacy", Result: model.ProcessingResult{}},
	}

	n, err := m.Sync(context.Background(), entries, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, "a", row.PlaylistID)
	assert.Equal(t, "A", row.Name)
	assert.Equal(t, int64(3661), row.DurationSeconds)
	assert.Equal(t, "0d 1h 1m 1s", row.Duration)
	assert.Equal(t, &image, row.ImageURL)
	assert.True(t, row.Listened)
	assert.Equal(t, "run-1", row.RunID)

	_, err = m.Sync(context.Background(), entries, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.schemaCalls)
}

func TestMirror_Errors(t *testing.T) {
	t.Run("schema", func(t *testing.T) {
		m := NewMirror(&fakeRepo{schemaErr: errors.New("permission denied")}, zap.NewNop())
		_, err := m.Sync(context.Background(), nil, "run")
		assert.Error(t, err)
	})

	t.Run("upsert", func(t *testing.T) {
		m := NewMirror(&fakeRepo{upsertErr: errors.New("connection reset")}, zap.NewNop())
		_, err := m.Sync(context.Background(), []model.Entry{{Name: "A", Result: model.ProcessingResult{ID: "a"}}}, "run")
		assert.Error(t, err)
	})
}
