package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 10: 10, 1000: MaxLimit}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLimit(in), "limit %d", in)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 1, 1, 9, 30, 0, 123, time.FixedZone("PET", -5*3600))

	decoded, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: at, ID: 42}))
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
	assert.EqualValues(t, 42, decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("nope")),
		EncodeCursor(Cursor{CreatedAt: time.Now()}),
		EncodeCursor(Cursor{ID: 9}),
	} {
		_, err := ParseCursor(bad)
		assert.Error(t, err, bad)
	}
}

type row struct {
	id int64
	at time.Time
}

func TestTrim(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{3, base}, {2, base}, {1, base.Add(-time.Minute)}}
	position := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, position)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	c, err := ParseCursor(next)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.ID)

	page, next = Trim(rows[2:], 2, position)
	assert.Len(t, page, 1)
	assert.Empty(t, next)
}
