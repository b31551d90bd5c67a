package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchives(t *testing.T) {
	fileArchive, err := NewFileArchive(t.TempDir())
	require.NoError(t, err)

	for name, a := range map[string]Archive{
		"file":   fileArchive,
		"memory": NewMemoryArchive(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := a.Exists(ctx, Originals, "cat.png")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = a.Get(ctx, Originals, "cat.png")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, a.Put(ctx, Originals, "cat.png", []byte("original")))
			require.NoError(t, a.Put(ctx, Teasers, "cat.png", []byte("teaser")))
			require.NoError(t, a.Put(ctx, Originals, "ant.png", []byte("ant")))

			data, err := a.Get(ctx, Originals, "cat.png")
			require.NoError(t, err)
			assert.Equal(t, []byte("original"), data)

			data, err = a.Get(ctx, Teasers, "cat.png")
			require.NoError(t, err)
			assert.Equal(t, []byte("teaser"), data)

			ok, err = a.Exists(ctx, Teasers, "cat.png")
			require.NoError(t, err)
			assert.True(t, ok)

			keys, err := a.List(ctx, Originals)
			require.NoError(t, err)
			assert.Equal(t, []string{"ant.png", "cat.png"}, keys)

			keys, err = a.List(ctx, Collages)
			require.NoError(t, err)
			assert.Empty(t, keys)

			for _, key := range []string{"", "..", "../etc/passwd", "a/b.png"} {
				assert.ErrorIs(t, a.Put(ctx, Originals, key, nil), ErrInvalidKey, key)
			}
		})
	}
}
