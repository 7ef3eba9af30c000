package disc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/discio/discio"
	"github.com/discio/discio/internal/sizing"
)

// WUX stores Wii U disc images deduplicated: a sector index table maps
// every logical sector to a physical sector, and identical sectors (runs
// of zeros, repeated padding) share one physical copy. The 0x20-byte
// header is followed by the index table; sector data starts at the next
// sector-size boundary after the table.
const (
	wuxMagic0 = 0x30585557 // "WUX0"
	wuxMagic1 = 0x1099D02E

	wuxHeaderSize = 0x20

	wuxMinSectorSize = 0x100
	wuxMaxSectorSize = 0x10000000
)

var wuxFormat = Format{
	Name:  "WUX",
	Probe: probeWux,
	Open:  openWux,
}

func probeWux(header []byte) bool {
	if len(header) < 0x0C {
		return false
	}
	if binary.LittleEndian.Uint32(header[0:4]) != wuxMagic0 ||
		binary.LittleEndian.Uint32(header[4:8]) != wuxMagic1 {
		return false
	}
	ss := binary.LittleEndian.Uint32(header[8:12])
	return sizing.IsPowerOfTwo(ss) && ss >= wuxMinSectorSize && ss <= wuxMaxSectorSize
}

// wuxMapper resolves logical sectors through the image's index table.
// Entries may repeat: deduplicated logical sectors share a physical
// sector, which the Reader's block cache absorbs on consecutive reads.
type wuxMapper struct {
	sectorSize  uint32
	sectorCount uint32
	logicalSize int64
	dataOffset  int64
	table       []uint32
}

func openWux(f discio.File, opts ...Option) (*Reader, error) {
	header := make([]byte, wuxHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: file shorter than the WUX header", ErrInvalidFormat)
		}
		return nil, fmt.Errorf("disc: read WUX header: %w", err)
	}
	if !probeWux(header) {
		return nil, fmt.Errorf("%w: bad WUX header", ErrInvalidFormat)
	}

	sectorSize := binary.LittleEndian.Uint32(header[8:12])
	uncompressed := binary.LittleEndian.Uint64(header[0x10:0x18])
	if uncompressed == 0 {
		return nil, fmt.Errorf("%w: WUX image declares zero size", ErrInvalidFormat)
	}
	logicalSize, err := sizing.ToInt64(uncompressed, ErrInvalidFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: WUX uncompressed size overflows", ErrInvalidFormat)
	}

	count := (uncompressed + uint64(sectorSize) - 1) / uint64(sectorSize)
	if count > math.MaxUint32 {
		return nil, fmt.Errorf("%w: WUX sector count overflows", ErrInvalidFormat)
	}

	tableBytes, ok := sizing.MulUint64(count, 4)
	if !ok {
		return nil, fmt.Errorf("%w: WUX table size overflows", ErrInvalidFormat)
	}
	fileSize, err := f.Size()
	if err != nil {
		return nil, fmt.Errorf("disc: WUX backing size: %w", err)
	}
	tableEnd, ok := sizing.AddUint64(wuxHeaderSize, tableBytes)
	if !ok || tableEnd > uint64(fileSize) {
		return nil, fmt.Errorf("%w: file shorter than the WUX sector table", ErrInvalidFormat)
	}

	raw := make([]byte, tableBytes)
	if _, err := f.ReadAt(raw, wuxHeaderSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("disc: read WUX sector table: %w", err)
	}
	table := make([]uint32, count)
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	// Sector data starts at the next sector boundary after the table.
	ss := int64(sectorSize)
	dataOffset := (int64(tableEnd) + ss - 1) &^ (ss - 1)

	m := &wuxMapper{
		sectorSize:  sectorSize,
		sectorCount: uint32(count),
		logicalSize: logicalSize,
		dataOffset:  dataOffset,
		table:       table,
	}
	return NewReader(f, m, opts...)
}

func (m *wuxMapper) BlockSize() uint32  { return m.sectorSize }
func (m *wuxMapper) BlockCount() uint32 { return m.sectorCount }
func (m *wuxMapper) LogicalSize() int64 { return m.logicalSize }

func (m *wuxMapper) Resolve(idx uint32) PhysicalAddr {
	if idx >= m.sectorCount {
		return Missing
	}
	return StoredAt(m.dataOffset + int64(m.table[idx])*int64(m.sectorSize))
}
