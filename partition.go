package discio

// Partition exposes a byte range of a sparse or virtual address space as
// an ordinary File, letting a partition that spans multiple sparse blocks
// be handed to a consumer that only knows the File contract.
//
// The external contract matches View, except that partitions are
// read-only: the parent is typically a disc image reader that performs
// non-trivial translation per read and cannot accept writes.
type Partition struct {
	window
}

// Interface compliance.
var _ File = (*Partition)(nil)

// NewPartition creates a read-only view of [off, off+length) in parent.
//
// parent may be any File; it is typically a sparse disc reader. Parents
// whose size is unavailable defer bounds checking to per-read clamping.
// If parent is a *Shared handle the partition takes its own hold.
func NewPartition(parent File, off, length int64) (*Partition, error) {
	w, err := newWindow(parent, off, length)
	if err != nil {
		return nil, err
	}
	return &Partition{window: w}, nil
}

// Offset returns where the partition's zero address maps in its parent.
func (p *Partition) Offset() int64 { return p.off }

// Write is not supported on partitions.
func (p *Partition) Write([]byte) (int, error) {
	return 0, ErrNotWritable
}

// WriteAt is not supported on partitions.
func (p *Partition) WriteAt([]byte, int64) (int, error) {
	return 0, ErrNotWritable
}

// Truncate is not supported on partitions.
func (p *Partition) Truncate(int64) error {
	return ErrNotWritable
}
