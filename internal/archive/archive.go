// Package archive exports and imports the logical file set of a
// *volfs.Volume (names and bytes, not raw blocks) as a portable
// compressed stream. It never touches the volume's disk layout directly;
// it only calls the public Volume API, so it cannot violate any on-disk
// invariant. This is an operational backup/restore tool: a length-prefixed
// record stream run through a swappable compression codec.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/KarpelesLab/volfs"
)

// Codec selects the compression algorithm used for an archive stream.
type Codec int

const (
	Zstd Codec = iota
	Xz
)

// Export writes every live file in v (slot order, as ListFiles returns it) to w as
// a codec-compressed stream of length-prefixed (name, data) records.
func Export(v *volfs.Volume, w io.Writer, codec Codec) error {
	cw, closeFn, err := newCompressWriter(w, codec)
	if err != nil {
		return err
	}

	for _, name := range v.ListFiles() {
		data, err := v.ReadFile(name)
		if err != nil {
			closeFn()
			return fmt.Errorf("archive: read %q: %w", name, err)
		}
		if err := writeRecord(cw, name, data); err != nil {
			closeFn()
			return fmt.Errorf("archive: write %q: %w", name, err)
		}
	}

	return closeFn()
}

// Import reads an archive stream produced by Export and replays it into
// v: each record is created (or overwritten, if already present) via
// CreateFile/WriteFile.
func Import(v *volfs.Volume, r io.Reader, codec Codec) error {
	cr, closeFn, err := newDecompressReader(r, codec)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		name, data, err := readRecord(cr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: decode record: %w", err)
		}

		if createErr := v.CreateFile(name); createErr != nil {
			if kind, ok := volfs.KindOf(createErr); !ok || kind != volfs.AlreadyExists {
				return fmt.Errorf("archive: create %q: %w", name, createErr)
			}
		}
		if err := v.WriteFile(name, data); err != nil {
			return fmt.Errorf("archive: write %q: %w", name, err)
		}
	}
}

func writeRecord(w io.Writer, name string, data []byte) error {
	nameBytes := []byte(name)
	header := make([]byte, 2+4)
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if _, err := w.Write(nameBytes); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readRecord(r io.Reader) (string, []byte, error) {
	header := make([]byte, 2+4)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", nil, err
	}
	nameLen := binary.LittleEndian.Uint16(header[0:2])
	dataLen := binary.LittleEndian.Uint32(header[2:6])

	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return "", nil, io.ErrUnexpectedEOF
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", nil, io.ErrUnexpectedEOF
	}
	return string(nameBytes), data, nil
}

func newCompressWriter(w io.Writer, codec Codec) (io.Writer, func() error, error) {
	switch codec {
	case Xz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return xw, xw.Close, nil
	default:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	}
}

func newDecompressReader(r io.Reader, codec Codec) (io.Reader, func() error, error) {
	switch codec {
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() error { return nil }, nil
	default:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() error { zr.Close(); return nil }, nil
	}
}
