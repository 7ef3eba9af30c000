// Package discio provides layered random-access file views for reading
// nested container formats: a uniform file capability, an OS-backed
// implementation with transparent gzip decompression, bounded sub-range
// views, and partitions carved out of sparse block-mapped disc images.
//
// Every layer implements and consumes the same [File] contract, so views
// compose to arbitrary depth: a partition inside a disc image inside a
// gzip-compressed container file is still just a File.
//
// # Quick Start
//
// Open a possibly-compressed disc image and mount a partition:
//
//	f, err := discio.OpenFile("game.wux.gz", discio.ModeRead|discio.ModeGzip)
//	if err != nil {
//	    return err
//	}
//	shared := discio.Share(f)
//	defer shared.Close()
//
//	img, err := disc.Open(shared) // takes its own hold
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
//
//	part, err := discio.NewPartition(img, 0x50000, 0x1_0000_0000)
//
// # Ownership
//
// Wrap a File with [Share] when several views need to outlive the caller's
// original handle. Each view takes one hold and releases it on Close; the
// underlying file closes exactly once, when the last hold is released.
//
// # Concurrency
//
// Handles are not safe for concurrent position-mutating calls. At most one
// logical owner may call Read, Write, or Seek on a given handle at a time;
// open independent handles for concurrent access.
package discio
