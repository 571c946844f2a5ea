package volfs

import "encoding/binary"

// entry is one slot of the fixed inode table (§3.2). A free slot has an
// empty Name, Size 0, and FirstBlock -1.
type entry struct {
	Name       string
	Size       uint16
	FirstBlock int16
}

func (e *entry) live() bool {
	return e.Name != ""
}

func (e entry) marshal() []byte {
	buf := make([]byte, entryBytes)
	n := copy(buf[:maxNameBytes], e.Name)
	// remaining name bytes (including the one past n if Name is exactly
	// maxNameBytes long) must be zero; the zero-valued buf already is.
	_ = n
	binary.LittleEndian.PutUint16(buf[12:14], e.Size)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(e.FirstBlock))
	return buf
}

func (e *entry) unmarshal(buf []byte) {
	nul := maxNameBytes
	for i, b := range buf[:maxNameBytes] {
		if b == 0 {
			nul = i
			break
		}
	}
	e.Name = string(buf[:nul])
	e.Size = binary.LittleEndian.Uint16(buf[12:14])
	e.FirstBlock = int16(binary.LittleEndian.Uint16(buf[14:16]))
}
