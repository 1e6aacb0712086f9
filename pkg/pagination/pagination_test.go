package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type row struct {
	id uuid.UUID
	at time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	require.Equal(t, c.ID, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("not-base64!")
	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = ParseCursor(base64.RawURLEncoding.EncodeToString([]byte("no-separator")))
	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorIsURLSafe(t *testing.T) {
	for i := 0; i < 50; i++ {
		token := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
		require.NotContains(t, token, "+")
		require.NotContains(t, token, "/")
		require.NotContains(t, token, "=")
	}
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+5))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrimProducesNextCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{id: uuid.New(), at: base.Add(3 * time.Minute)},
		{id: uuid.New(), at: base.Add(2 * time.Minute)},
		{id: uuid.New(), at: base.Add(time.Minute)},
	}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Trim(rows, 2, cursorOf)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, next.ID)

	last := Trim(rows[:1], 2, cursorOf)
	require.Len(t, last.Items, 1)
	require.Empty(t, last.NextCursor)

	none := Trim[row](nil, 2, cursorOf)
	require.NotNil(t, none.Items)
}
