package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/prefeitura-rio/app-identidade/internal/config"
	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/storage"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a throwaway SQLite store
func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	db, err := config.OpenSQLite(filepath.Join(t.TempDir(), "ids.db"))
	require.NoError(t, err)

	store, err := storage.NewSQLStore(db, logging.Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// solidPNG returns a PNG of the given size filled with c
func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeRenderer records calls and returns a fixed image
type fakeRenderer struct {
	calls []CardData
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, data CardData) ([]byte, error) {
	f.calls = append(f.calls, data)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("card:" + data.Nickname + ":" + data.Serial), nil
}
