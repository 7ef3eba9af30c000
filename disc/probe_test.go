package disc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discio/discio/internal/testutil"
)

func TestOpenDispatch(t *testing.T) {
	t.Parallel()

	const ss = wuxMinSectorSize
	tests := []struct {
		name       string
		image      []byte
		wantFormat string
	}{
		{
			name:       "ciso",
			image:      buildCiso(t, cisoMinBlockSize, [][]byte{fillBlock(cisoMinBlockSize, 1)}),
			wantFormat: "CISO",
		},
		{
			name:       "wux",
			image:      buildWux(t, ss, ss, []uint32{0}, [][]byte{fillBlock(ss, 1)}),
			wantFormat: "WUX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := Open(testutil.NewMemFile(tt.image))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, tt.wantFormat, r.Format())
		})
	}
}

func TestOpenUnknownFormat(t *testing.T) {
	t.Parallel()

	t.Run("unrecognized header", func(t *testing.T) {
		t.Parallel()
		_, err := Open(testutil.NewMemFile(make([]byte, 1024)))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("file shorter than probe window", func(t *testing.T) {
		t.Parallel()
		_, err := Open(testutil.NewMemFile([]byte("tiny")))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestDetect(t *testing.T) {
	t.Parallel()

	header := buildCiso(t, cisoMinBlockSize, nil)[:ProbeLen]
	format, ok := Detect(header)
	require.True(t, ok)
	assert.Equal(t, "CISO", format.Name)

	_, ok = Detect(make([]byte, ProbeLen))
	assert.False(t, ok)
}

func TestFormatsIsACopy(t *testing.T) {
	t.Parallel()

	list := Formats()
	require.NotEmpty(t, list)
	list[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Formats()[0].Name)
}
