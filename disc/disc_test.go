package disc

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discio/discio"
	"github.com/discio/discio/internal/testutil"
)

// tableMapper resolves blocks from a fixed address table, the shape most
// container formats reduce to.
type tableMapper struct {
	blockSize uint32
	size      int64
	addrs     []PhysicalAddr
}

func (m *tableMapper) BlockSize() uint32  { return m.blockSize }
func (m *tableMapper) BlockCount() uint32 { return uint32(len(m.addrs)) }

func (m *tableMapper) LogicalSize() int64 {
	if m.size != 0 {
		return m.size
	}
	return int64(len(m.addrs)) * int64(m.blockSize)
}

func (m *tableMapper) Resolve(idx uint32) PhysicalAddr {
	if idx >= uint32(len(m.addrs)) {
		return Missing
	}
	return m.addrs[idx]
}

// backing lays out three distinct 512-byte blocks at known offsets.
func backing() *testutil.MemFile {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return testutil.NewMemFile(data)
}

func TestReaderStraddlingRead(t *testing.T) {
	t.Parallel()

	const bs = 512
	f := backing()
	// Logical layout: block 0 stored at 0x400, block 1 empty, block 2
	// stored at 0x800.
	m := &tableMapper{
		blockSize: bs,
		addrs:     []PhysicalAddr{StoredAt(0x400), EmptyBlock, StoredAt(0x800)},
	}
	r, err := NewReader(f, m)
	require.NoError(t, err)
	defer r.Close()

	// [256, 1280): tail of block 0, all of empty block 1, head of block 2.
	got := make([]byte, 1024)
	n, err := r.ReadAt(got, 256)
	require.NoError(t, err)
	require.Equal(t, 1024, n)

	assert.Equal(t, f.Data[0x400+256:0x400+512], got[:256])
	assert.Equal(t, make([]byte, 512), got[256:768])
	assert.Equal(t, f.Data[0x800:0x800+256], got[768:])
}

func TestReaderUnalignedChunks(t *testing.T) {
	t.Parallel()

	const bs = 512
	f := backing()
	m := &tableMapper{
		blockSize: bs,
		addrs:     []PhysicalAddr{StoredAt(0), StoredAt(0xA00), StoredAt(0x200)},
	}
	r, err := NewReader(f, m)
	require.NoError(t, err)
	defer r.Close()

	// Reassemble the logical image in odd-sized sequential reads and
	// compare against one flat read.
	want := make([]byte, 3*bs)
	_, err = r.ReadAt(want, 0)
	require.NoError(t, err)

	var got bytes.Buffer
	buf := make([]byte, 97)
	for {
		n, err := r.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, want, got.Bytes())
}

func TestReaderInvalidBlock(t *testing.T) {
	t.Parallel()

	m := &tableMapper{
		blockSize: 512,
		// Logical size declares two blocks but only one resolves.
		size:  1024,
		addrs: []PhysicalAddr{StoredAt(0)},
	}
	r, err := NewReader(backing(), m)
	require.NoError(t, err)
	defer r.Close()

	// Resolve one past the last valid index is always Missing.
	assert.Equal(t, Missing, m.Resolve(m.BlockCount()))

	// A read needing the unresolvable block fails as a whole.
	_, err = r.ReadAt(make([]byte, 1024), 0)
	assert.ErrorIs(t, err, ErrInvalidBlock)
}

func TestReaderLogicalSizeBoundary(t *testing.T) {
	t.Parallel()

	m := &tableMapper{
		blockSize: 512,
		// Final block logically truncated: declared size is not a
		// multiple of the block size.
		size:  768,
		addrs: []PhysicalAddr{StoredAt(0), StoredAt(0x200)},
	}
	r, err := NewReader(backing(), m)
	require.NoError(t, err)
	defer r.Close()

	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(768), size)

	// Straddling the declared size yields a short read, not an error.
	n, err := r.ReadAt(make([]byte, 512), 512)
	assert.Equal(t, 256, n)
	assert.ErrorIs(t, err, io.EOF)

	// Past the declared size yields zero bytes.
	n, err = r.ReadAt(make([]byte, 16), 768)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderBlockCache(t *testing.T) {
	t.Parallel()

	f := backing()
	// Blocks 0..3 all deduplicate onto the same physical block.
	shared := StoredAt(0x600)
	m := &tableMapper{
		blockSize: 512,
		addrs:     []PhysicalAddr{shared, shared, shared, shared},
	}
	r, err := NewReader(f, m, WithCacheBlocks(1))
	require.NoError(t, err)
	defer r.Close()

	got := make([]byte, 4*512)
	_, err = r.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ReadAtCalls, "deduplicated blocks must hit the cache")

	for i := 0; i < 4; i++ {
		assert.Equal(t, f.Data[0x600:0x800], got[i*512:(i+1)*512])
	}

	// Small consecutive unaligned reads inside one block reuse it too.
	buf := make([]byte, 10)
	for off := int64(0); off < 500; off += 10 {
		_, err = r.ReadAt(buf, off)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.ReadAtCalls)
}

func TestReaderIsReadOnly(t *testing.T) {
	t.Parallel()

	r, err := NewReader(backing(), &tableMapper{blockSize: 512, addrs: []PhysicalAddr{StoredAt(0)}})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte{1})
	assert.ErrorIs(t, err, discio.ErrNotWritable)
	_, err = r.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, discio.ErrNotWritable)
	assert.ErrorIs(t, r.Truncate(0), discio.ErrNotWritable)
}

func TestReaderRejectsBadBlockSize(t *testing.T) {
	t.Parallel()

	_, err := NewReader(backing(), &tableMapper{blockSize: 500, addrs: []PhysicalAddr{StoredAt(0)}})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPartitionOverReader(t *testing.T) {
	t.Parallel()

	f := backing()
	m := &tableMapper{
		blockSize: 512,
		addrs:     []PhysicalAddr{StoredAt(0x400), EmptyBlock, StoredAt(0x800)},
	}
	r, err := NewReader(f, m)
	require.NoError(t, err)
	defer r.Close()

	// A partition straddling the empty block reads through the sparse
	// translation transparently.
	p, err := discio.NewPartition(r, 256, 1024)
	require.NoError(t, err)
	defer p.Close()

	got := make([]byte, 1024)
	_, err = io.ReadFull(p, got)
	require.NoError(t, err)
	assert.Equal(t, f.Data[0x400+256:0x400+512], got[:256])
	assert.Equal(t, make([]byte, 512), got[256:768])
	assert.Equal(t, f.Data[0x800:0x800+256], got[768:])
}

func TestReaderSharedOwnership(t *testing.T) {
	t.Parallel()

	f := backing()
	shared := discio.Share(f)
	r, err := NewReader(shared, &tableMapper{blockSize: 512, addrs: []PhysicalAddr{StoredAt(0)}})
	require.NoError(t, err)

	require.NoError(t, shared.Close())
	assert.Equal(t, 0, f.CloseCalls)
	require.NoError(t, r.Close())
	assert.Equal(t, 1, f.CloseCalls)
}
