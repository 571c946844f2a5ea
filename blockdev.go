package volfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// blockDevice is a thin wrapper around a random-access, byte-addressable
// backing file of exactly some fixed size (§4.1). All access goes through
// ReadAt/WriteAt so the underlying *os.File's single cursor is never
// raced against by concurrent callers above the gate.
type blockDevice struct {
	f *os.File
}

func openBlockDevice(path string) (*blockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &blockDevice{f: f}, nil
}

func (d *blockDevice) size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ensureSize extends the backing file to at least n bytes, never
// truncating. Newly extended bytes read as zero.
func (d *blockDevice) ensureSize(n int64) error {
	cur, err := d.size()
	if err != nil {
		return err
	}
	if cur >= n {
		return nil
	}

	// Fallocate pre-zeros and reserves the extent in one syscall; fall
	// back to Truncate (which also zero-extends) whenever it returns an
	// error, e.g. on filesystems that reject fallocate. unix.Fallocate
	// exists only on Linux, so this file builds only there.
	if err := unix.Fallocate(int(d.f.Fd()), 0, cur, n-cur); err != nil {
		return d.f.Truncate(n)
	}
	return nil
}

func (d *blockDevice) read(off int64, buf []byte) error {
	_, err := d.f.ReadAt(buf, off)
	return err
}

func (d *blockDevice) write(off int64, buf []byte) error {
	_, err := d.f.WriteAt(buf, off)
	return err
}

func (d *blockDevice) close() error {
	return d.f.Close()
}
