package disc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discio/discio/internal/testutil"
)

// buildCiso assembles a CISO image. blocks[i] == nil marks an empty
// logical block; present blocks must be blockSize bytes.
func buildCiso(t *testing.T, blockSize uint32, blocks [][]byte) []byte {
	t.Helper()

	header := make([]byte, cisoHeaderSize)
	copy(header, cisoMagic)
	binary.LittleEndian.PutUint32(header[4:8], blockSize)

	var data bytes.Buffer
	for i, b := range blocks {
		if b == nil {
			continue
		}
		require.Len(t, b, int(blockSize))
		header[8+i] = 1
		data.Write(b)
	}
	return append(header, data.Bytes()...)
}

func fillBlock(size uint32, b byte) []byte {
	return bytes.Repeat([]byte{b}, int(size))
}

func TestCisoRead(t *testing.T) {
	t.Parallel()

	const bs = cisoMinBlockSize
	image := buildCiso(t, bs, [][]byte{fillBlock(bs, 0x11), nil, fillBlock(bs, 0x33)})
	r, err := openCiso(testutil.NewMemFile(image))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(bs), r.BlockSize())
	assert.Equal(t, uint32(3), r.BlockCount())
	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3*bs), size)

	// The empty middle block reads as zeros between the stored blocks.
	got := make([]byte, 3*bs)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, fillBlock(bs, 0x11), got[:bs])
	assert.Equal(t, make([]byte, bs), got[bs:2*bs])
	assert.Equal(t, fillBlock(bs, 0x33), got[2*bs:])
}

func TestCisoResolve(t *testing.T) {
	t.Parallel()

	const bs = cisoMinBlockSize
	image := buildCiso(t, bs, [][]byte{fillBlock(bs, 1), nil, fillBlock(bs, 2)})
	r, err := openCiso(testutil.NewMemFile(image))
	require.NoError(t, err)
	defer r.Close()

	m := r.m.(*cisoMapper)
	assert.Equal(t, StoredAt(cisoHeaderSize), m.Resolve(0))
	assert.Equal(t, EmptyBlock, m.Resolve(1))
	// Block 2 is the second stored block: physically right after block 0.
	assert.Equal(t, StoredAt(cisoHeaderSize+bs), m.Resolve(2))
	assert.Equal(t, Missing, m.Resolve(3))
}

func TestCisoInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		image []byte
	}{
		{name: "truncated header", image: buildCiso(t, cisoMinBlockSize, [][]byte{fillBlock(cisoMinBlockSize, 1)})[:100]},
		{name: "no blocks mapped", image: buildCiso(t, cisoMinBlockSize, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := openCiso(testutil.NewMemFile(tt.image))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestCisoProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []byte
		want   bool
	}{
		{name: "valid", header: buildCiso(t, cisoMinBlockSize, nil)[:ProbeLen], want: true},
		{name: "wrong magic", header: make([]byte, ProbeLen)},
		{name: "block size not power of two", header: func() []byte {
			h := buildCiso(t, cisoMinBlockSize, nil)[:ProbeLen]
			binary.LittleEndian.PutUint32(h[4:8], cisoMinBlockSize+1)
			return h
		}()},
		{name: "block size too small", header: func() []byte {
			h := buildCiso(t, cisoMinBlockSize, nil)[:ProbeLen]
			binary.LittleEndian.PutUint32(h[4:8], 0x200)
			return h
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, probeCiso(tt.header))
		})
	}
}
