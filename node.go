package volfs

import "encoding/binary"

// Sentinel values carried in a node's Next field (§3.2, §9: preserved
// exactly on disk for image compatibility across implementations).
const (
	nodeFree int16 = -1
	nodeEnd  int16 = -2
)

// node is one slot of the fixed block-node table, one per data block.
// BlockIndex duplicates the slot position (§9); it is regenerated from the
// slot index on every flush rather than trusted from disk.
type node struct {
	BlockIndex uint16
	Next       int16
}

func (n node) marshal() []byte {
	buf := make([]byte, nodeBytes)
	binary.LittleEndian.PutUint16(buf[0:2], n.BlockIndex)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(n.Next))
	return buf
}

func (n *node) unmarshal(buf []byte) {
	n.BlockIndex = binary.LittleEndian.Uint16(buf[0:2])
	n.Next = int16(binary.LittleEndian.Uint16(buf[2:4]))
}
