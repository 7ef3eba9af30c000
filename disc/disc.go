// Package disc reads sparse block-mapped disc images.
//
// A disc image's logical address space is divided into fixed-size blocks
// whose physical layout in the backing file may be out of order, shared
// between logical blocks, or absent entirely. A format-specific [Mapper]
// translates logical block indices to physical addresses; the generic
// [Reader] serves arbitrary-offset, arbitrary-length reads on top of it
// and satisfies the discio.File contract, so a partition carved from a
// disc image nests like any other file.
//
// Formats register a header probe in an immutable table; [Open] selects
// the right mapper without the caller knowing the container type.
package disc

import (
	"errors"
	"fmt"
	"io"

	"github.com/discio/discio"
)

var (
	// ErrInvalidBlock is returned when a read references a logical block
	// beyond the block map's declared range.
	ErrInvalidBlock = errors.New("disc: invalid block index")

	// ErrInvalidFormat is returned when the backing file is too short or
	// malformed to hold the format's own address table.
	ErrInvalidFormat = errors.New("disc: invalid image format")

	// ErrUnknownFormat is returned by Open when no registered format
	// recognizes the image header.
	ErrUnknownFormat = errors.New("disc: unknown image format")
)

// BlockState classifies where a logical block's data lives.
type BlockState uint8

const (
	// BlockMissing marks a block index outside the declared block count.
	BlockMissing BlockState = iota

	// BlockEmpty marks a block with no physical storage; it reads as zeros.
	BlockEmpty

	// BlockStored marks a block stored at a physical byte offset.
	BlockStored
)

// PhysicalAddr locates a logical block in the backing file.
// Offset is meaningful only when State is BlockStored.
type PhysicalAddr struct {
	State  BlockState
	Offset int64
}

// Missing is the address of a block outside the map's range.
var Missing = PhysicalAddr{State: BlockMissing}

// EmptyBlock is the address of a block that reads as all zeros.
var EmptyBlock = PhysicalAddr{State: BlockEmpty}

// StoredAt returns the address of a block stored at the given physical
// byte offset.
func StoredAt(off int64) PhysicalAddr {
	return PhysicalAddr{State: BlockStored, Offset: off}
}

// Mapper translates the logical block space of one image format.
//
// Resolve must return Missing for every index at or beyond BlockCount.
// BlockSize must be a power of two. LogicalSize is the declared content
// length; it may fall short of BlockCount*BlockSize when the final block
// is logically truncated.
type Mapper interface {
	BlockSize() uint32
	BlockCount() uint32
	LogicalSize() int64
	Resolve(idx uint32) PhysicalAddr
}

// Reader serves random-access reads against a sparse logical address
// space. Reader implements discio.File; all write operations fail with
// discio.ErrNotWritable.
//
// Decoded physical blocks are cached per Reader instance, so consecutive
// unaligned reads and deduplicated formats (several logical blocks mapped
// to one physical block) do not re-read the backing store.
type Reader struct {
	f      discio.File
	owns   bool
	m      Mapper
	format string
	cache  *blockCache
	pos    int64
	closed bool
}

// Interface compliance.
var _ discio.File = (*Reader)(nil)

// Option configures a Reader.
type Option func(*readerConfig)

type readerConfig struct {
	cacheBlocks int
}

// WithCacheBlocks sets how many decoded physical blocks the Reader keeps.
// Values < 1 are treated as 1.
func WithCacheBlocks(n int) Option {
	return func(cfg *readerConfig) {
		cfg.cacheBlocks = n
	}
}

// NewReader creates a Reader that serves m's logical address space from f.
// If f is a *discio.Shared handle the Reader takes its own hold.
func NewReader(f discio.File, m Mapper, opts ...Option) (*Reader, error) {
	cfg := readerConfig{cacheBlocks: defaultCacheBlocks}
	for _, opt := range opts {
		opt(&cfg)
	}

	bs := m.BlockSize()
	if bs == 0 || bs&(bs-1) != 0 {
		return nil, fmt.Errorf("%w: block size %#x is not a power of two", ErrInvalidFormat, bs)
	}
	cache, err := newBlockCache(cfg.cacheBlocks, int(bs))
	if err != nil {
		return nil, err
	}

	backing, owns := retain(f)
	return &Reader{f: backing, owns: owns, m: m, cache: cache}, nil
}

func retain(f discio.File) (discio.File, bool) {
	if s, ok := f.(*discio.Shared); ok {
		return s.Ref(), true
	}
	return f, false
}

// Format returns the name of the container format, when the Reader was
// produced by Open. Readers constructed directly report an empty string.
func (r *Reader) Format() string { return r.format }

// BlockSize returns the logical block size in bytes.
func (r *Reader) BlockSize() uint32 { return r.m.BlockSize() }

// BlockCount returns the number of logical blocks.
func (r *Reader) BlockCount() uint32 { return r.m.BlockCount() }

// Size returns the declared logical content length.
func (r *Reader) Size() (int64, error) {
	if r.closed {
		return 0, discio.ErrClosed
	}
	return r.m.LogicalSize(), nil
}

func (r *Reader) IsOpen() bool {
	return !r.closed && r.f.IsOpen()
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// ReadAt reads from the logical address space. The request is decomposed
// into the logical blocks it touches; empty blocks contribute zeros,
// stored blocks are fetched through the block cache, and missing blocks
// fail the whole read with ErrInvalidBlock. Reads past the declared
// logical size return io.EOF, not an error.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if r.closed {
		return 0, discio.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: read at %d", discio.ErrInvalidArgument, off)
	}

	size := r.m.LogicalSize()
	if off >= size {
		return 0, io.EOF
	}
	short := false
	if max := size - off; int64(len(p)) > max {
		p = p[:max]
		short = true
	}

	bs := int64(r.m.BlockSize())
	filled := 0
	for filled < len(p) {
		pos := off + int64(filled)
		idx := pos / bs
		intra := pos % bs
		chunk := bs - intra
		if rem := int64(len(p) - filled); chunk > rem {
			chunk = rem
		}
		dst := p[filled : filled+int(chunk)]

		addr := r.m.Resolve(uint32(idx))
		switch addr.State {
		case BlockMissing:
			return filled, fmt.Errorf("%w: block %d of %d", ErrInvalidBlock, idx, r.m.BlockCount())
		case BlockEmpty:
			clear(dst)
		case BlockStored:
			block, err := r.block(addr.Offset)
			if err != nil {
				return filled, err
			}
			copy(dst, block[intra:intra+chunk])
		}
		filled += int(chunk)
	}

	if short {
		return filled, io.EOF
	}
	return filled, nil
}

// block returns the decoded contents of the physical block at off,
// reading it in full from the backing file on a cache miss. A short read
// at the physical end of file zero-fills the remainder.
func (r *Reader) block(off int64) ([]byte, error) {
	if block, ok := r.cache.get(off); ok {
		return block, nil
	}

	block := make([]byte, r.m.BlockSize())
	n, err := r.f.ReadAt(block, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("disc: read block at %#x: %w", off, err)
	}
	clear(block[n:])
	r.cache.add(off, block)
	return block, nil
}

func (r *Reader) Seek(off int64, whence int) (int64, error) {
	if r.closed {
		return 0, discio.ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = off
	case io.SeekCurrent:
		target = r.pos + off
	case io.SeekEnd:
		target = r.m.LogicalSize() + off
	default:
		return 0, fmt.Errorf("%w: seek whence %d", discio.ErrInvalidArgument, whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("%w: seek to %d", discio.ErrInvalidArgument, target)
	}
	r.pos = target
	return target, nil
}

// Write is not supported on disc images.
func (r *Reader) Write([]byte) (int, error) {
	return 0, discio.ErrNotWritable
}

// WriteAt is not supported on disc images.
func (r *Reader) WriteAt([]byte, int64) (int, error) {
	return 0, discio.ErrNotWritable
}

// Truncate is not supported on disc images.
func (r *Reader) Truncate(int64) error {
	return discio.ErrNotWritable
}

// Close releases the Reader's hold on the backing file, when it owns one.
func (r *Reader) Close() error {
	if r.closed {
		return discio.ErrClosed
	}
	r.closed = true
	r.cache.purge()
	if r.owns {
		return r.f.Close()
	}
	return nil
}
