package volfs

import "encoding/binary"

// Magic identifies a volfs image on disk. Its hex digits spell "FSV2"; like
// every field of the fixed layout in §4.2 it is stored little-endian, so
// the first four bytes of an image read "2VSF".
const Magic uint32 = 0x46535632

// headerBytes is the fixed size of the header record at offset 0.
const headerBytes = 24

// entryBytes is the fixed size of one inode entry record.
const entryBytes = 16

// nodeBytes is the fixed size of one block-node record.
const nodeBytes = 4

// maxNameBytes is the maximum length, in bytes, of a stored filename.
const maxNameBytes = 11

// maxFileBytes is the largest size a single file may have.
const maxFileBytes = 65535

// header mirrors the 24-byte on-disk header: magic, totalBytes, blockSize,
// maxFiles, maxBlocks, and a reserved zero word.
type header struct {
	Magic      uint32
	TotalBytes uint32
	BlockSize  uint32
	MaxFiles   uint32
	MaxBlocks  uint32
	Reserved   uint32
}

func (h *header) marshal() []byte {
	buf := make([]byte, headerBytes)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.TotalBytes)
	binary.LittleEndian.PutUint32(buf[8:12], h.BlockSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.MaxFiles)
	binary.LittleEndian.PutUint32(buf[16:20], h.MaxBlocks)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
	return buf
}

func (h *header) unmarshal(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.TotalBytes = binary.LittleEndian.Uint32(buf[4:8])
	h.BlockSize = binary.LittleEndian.Uint32(buf[8:12])
	h.MaxFiles = binary.LittleEndian.Uint32(buf[12:16])
	h.MaxBlocks = binary.LittleEndian.Uint32(buf[16:20])
	h.Reserved = binary.LittleEndian.Uint32(buf[20:24])
}

// layout holds the derived offsets for a given set of volume parameters.
type layout struct {
	blockSize uint32
	maxFiles  uint32
	maxBlocks uint32

	entriesOff uint32
	nodesOff   uint32
	dataOff    uint32
}

func newLayout(blockSize, maxFiles, maxBlocks uint32) layout {
	entriesOff := uint32(headerBytes)
	nodesOff := entriesOff + entryBytes*maxFiles
	dataOff := nodesOff + nodeBytes*maxBlocks
	return layout{
		blockSize:  blockSize,
		maxFiles:   maxFiles,
		maxBlocks:  maxBlocks,
		entriesOff: entriesOff,
		nodesOff:   nodesOff,
		dataOff:    dataOff,
	}
}

func (l layout) entryOffset(slot int) int64 {
	return int64(l.entriesOff) + int64(slot)*entryBytes
}

func (l layout) nodeOffset(idx int) int64 {
	return int64(l.nodesOff) + int64(idx)*nodeBytes
}

func (l layout) blockOffset(idx int) int64 {
	return int64(l.dataOff) + int64(idx)*int64(l.blockSize)
}

func (l layout) requiredBytes() uint64 {
	return uint64(l.dataOff) + uint64(l.maxBlocks)*uint64(l.blockSize)
}
