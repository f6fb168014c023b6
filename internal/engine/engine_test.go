package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDatabaseRoundTrip(t *testing.T) {
	eng := New(t.TempDir())
	ctx := context.Background()

	h, err := eng.NewDatabase(ctx)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.DB().ExecContext(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)
	_, err = h.DB().ExecContext(ctx, `INSERT INTO notes (id, body) VALUES ('n1', 'bonjour')`)
	require.NoError(t, err)

	image, err := eng.Serialize(ctx, h)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(image, sqliteMagic), "serialized image must carry the standard header")

	h2, err := eng.OpenDatabase(ctx, image)
	require.NoError(t, err)
	defer h2.Close()

	var body string
	err = h2.DB().QueryRowContext(ctx, `SELECT body FROM notes WHERE id = 'n1'`).Scan(&body)
	require.NoError(t, err)
	require.Equal(t, "bonjour", body)
}

func TestSerializeIsASnapshot(t *testing.T) {
	eng := New(t.TempDir())
	ctx := context.Background()

	h, err := eng.NewDatabase(ctx)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.DB().ExecContext(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	image, err := eng.Serialize(ctx, h)
	require.NoError(t, err)

	// A write after the snapshot must not leak into the already-taken image.
	_, err = h.DB().ExecContext(ctx, `INSERT INTO notes (id) VALUES ('late')`)
	require.NoError(t, err)

	h2, err := eng.OpenDatabase(ctx, image)
	require.NoError(t, err)
	defer h2.Close()

	var n int
	err = h2.DB().QueryRowContext(ctx, `SELECT count(*) FROM notes`).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestOpenDatabaseRejectsBadHeader(t *testing.T) {
	eng := New(t.TempDir())
	_, err := eng.OpenDatabase(context.Background(), []byte("definitely not a database"))
	require.ErrorIs(t, err, ErrCorruptDatabase)
}

func TestOpenDatabaseRejectsEmptyImage(t *testing.T) {
	eng := New(t.TempDir())
	_, err := eng.OpenDatabase(context.Background(), nil)
	require.ErrorIs(t, err, ErrCorruptDatabase)
}

func TestOpenDatabaseRejectsMangledImage(t *testing.T) {
	// Valid magic followed by garbage: the header check passes, the pager
	// probe must not.
	data := append(append([]byte{}, sqliteMagic...), bytes.Repeat([]byte{0xff}, 4096)...)

	eng := New(t.TempDir())
	_, err := eng.OpenDatabase(context.Background(), data)
	require.ErrorIs(t, err, ErrCorruptDatabase)
}

func TestHandleCloseRemovesScratchFile(t *testing.T) {
	eng := New(t.TempDir())
	ctx := context.Background()

	h, err := eng.NewDatabase(ctx)
	require.NoError(t, err)
	path := h.path

	require.NoError(t, h.Close())
	require.NoFileExists(t, path)

	// Closing twice is harmless.
	require.NoError(t, h.Close())
}
