package disc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/discio/discio"
	"github.com/discio/discio/internal/sizing"
)

// CISO (GameCube variant) stores a 32 KiB header followed by the used
// blocks back to back. The header is the magic, the block size, and a
// presence map with one byte per logical block: zero means the block has
// no physical storage and reads as zeros.
const (
	cisoHeaderSize = 0x8000
	cisoMapLen     = cisoHeaderSize - 8

	cisoMinBlockSize = 0x8000
	cisoMaxBlockSize = 0x1000000
)

var cisoMagic = []byte("CISO")

var cisoFormat = Format{
	Name:  "CISO",
	Probe: probeCiso,
	Open:  openCiso,
}

func probeCiso(header []byte) bool {
	if len(header) < 8 || !bytes.Equal(header[:4], cisoMagic) {
		return false
	}
	bs := binary.LittleEndian.Uint32(header[4:8])
	return sizing.IsPowerOfTwo(bs) && bs >= cisoMinBlockSize && bs <= cisoMaxBlockSize
}

// cisoMapper resolves logical blocks through the header's presence map.
// phys[i] is the physical block index of logical block i, or -1 when the
// block is empty.
type cisoMapper struct {
	blockSize  uint32
	blockCount uint32
	phys       []int32
}

func openCiso(f discio.File, opts ...Option) (*Reader, error) {
	header := make([]byte, cisoHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: file shorter than the CISO header", ErrInvalidFormat)
		}
		return nil, fmt.Errorf("disc: read CISO header: %w", err)
	}
	if !probeCiso(header) {
		return nil, fmt.Errorf("%w: bad CISO header", ErrInvalidFormat)
	}

	m := &cisoMapper{blockSize: binary.LittleEndian.Uint32(header[4:8])}
	m.phys = make([]int32, cisoMapLen)
	next := int32(0)
	for i, used := range header[8:] {
		if used == 0 {
			m.phys[i] = -1
			continue
		}
		m.phys[i] = next
		next++
		m.blockCount = uint32(i) + 1
	}
	if m.blockCount == 0 {
		return nil, fmt.Errorf("%w: CISO image maps no blocks", ErrInvalidFormat)
	}
	m.phys = m.phys[:m.blockCount]

	return NewReader(f, m, opts...)
}

func (m *cisoMapper) BlockSize() uint32  { return m.blockSize }
func (m *cisoMapper) BlockCount() uint32 { return m.blockCount }

func (m *cisoMapper) LogicalSize() int64 {
	return int64(m.blockCount) * int64(m.blockSize)
}

func (m *cisoMapper) Resolve(idx uint32) PhysicalAddr {
	if idx >= m.blockCount {
		return Missing
	}
	phys := m.phys[idx]
	if phys < 0 {
		return EmptyBlock
	}
	return StoredAt(cisoHeaderSize + int64(phys)*int64(m.blockSize))
}
