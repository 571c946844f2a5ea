// Package volfs implements a tiny persistent file system backed by a
// single fixed-size disk image: a packed header, a fixed inode table, a
// free/next-pointer block-node table, and a data region (§2, §3). Volume
// is the concurrent orchestrator exposing create/write/read/delete/list
// over that image (§4.5).
package volfs

import (
	"log/slog"
	"strings"
)

// Option configures a Volume at construction time.
type Option func(*Volume)

// WithLogger attaches a structured logger. A nil logger (the default)
// falls back to slog.Default() lazily on first use.
func WithLogger(l *slog.Logger) Option {
	return func(v *Volume) { v.log = l }
}

// Volume is a first-class value with an explicit lifecycle: callers may
// open as many independent volumes, over distinct backing files, as they
// like (§9: process-wide state is deliberately not used).
//
// Known limitation (documented, not a bug): a crash between writeFile's
// commit point (step 7) and its old-chain reclamation (step 8) leaks the
// old chain. A scan-and-reclaim pass on Open could recover it; this
// implementation does not perform one.
type Volume struct {
	gate gate

	dev   *blockDevice
	lay   layout
	hdr   header
	table *inodeTable
	alloc *allocator
	log   *slog.Logger
}

func (v *Volume) logger() *slog.Logger {
	if v.log != nil {
		return v.log
	}
	return slog.Default()
}

// Open opens or creates the backing file at path and returns a ready
// Volume (§4.5 Construction).
func Open(path string, totalBytes, blockSize, maxFiles, maxBlocks uint32, opts ...Option) (*Volume, error) {
	lay := newLayout(blockSize, maxFiles, maxBlocks)
	if uint64(totalBytes) < lay.requiredBytes() {
		return nil, newErr(InvalidArgument, "open", "", nil)
	}

	dev, err := openBlockDevice(path)
	if err != nil {
		return nil, newErr(Io, "open", "", err)
	}

	v := &Volume{
		dev:   dev,
		lay:   lay,
		table: newInodeTable(maxFiles),
		alloc: newAllocator(maxBlocks),
	}
	for _, opt := range opts {
		opt(v)
	}

	curSize, err := dev.size()
	if err != nil {
		dev.close()
		return nil, newErr(Io, "open", "", err)
	}

	resumable := curSize >= headerBytes
	var existingHdr header
	if resumable {
		buf := make([]byte, headerBytes)
		if err := dev.read(0, buf); err != nil {
			dev.close()
			return nil, newErr(Io, "open", "", err)
		}
		existingHdr.unmarshal(buf)
	}

	if err := dev.ensureSize(int64(totalBytes)); err != nil {
		dev.close()
		return nil, newErr(Io, "open", "", err)
	}

	match := resumable &&
		existingHdr.Magic == Magic &&
		existingHdr.TotalBytes == totalBytes &&
		existingHdr.BlockSize == blockSize &&
		existingHdr.MaxFiles == maxFiles &&
		existingHdr.MaxBlocks == maxBlocks

	if match {
		if err := v.loadExisting(); err != nil {
			dev.close()
			return nil, err
		}
		v.logger().Info("volfs: resumed existing volume", "path", path)
		return v, nil
	}

	if err := v.initializeEmpty(totalBytes, blockSize, maxFiles, maxBlocks); err != nil {
		dev.close()
		return nil, err
	}
	v.logger().Info("volfs: initialized empty volume", "path", path)
	return v, nil
}

func (v *Volume) loadExisting() error {
	buf := make([]byte, headerBytes)
	if err := v.dev.read(0, buf); err != nil {
		return newErr(Io, "open", "", err)
	}
	v.hdr.unmarshal(buf)

	for i := 0; i < int(v.lay.maxFiles); i++ {
		eb := make([]byte, entryBytes)
		if err := v.dev.read(v.lay.entryOffset(i), eb); err != nil {
			return newErr(Io, "open", "", err)
		}
		v.table.entries[i].unmarshal(eb)
	}

	for i := 0; i < int(v.lay.maxBlocks); i++ {
		nb := make([]byte, nodeBytes)
		if err := v.dev.read(v.lay.nodeOffset(i), nb); err != nil {
			return newErr(Io, "open", "", err)
		}
		v.alloc.nodes[i].unmarshal(nb)
		v.alloc.nodes[i].BlockIndex = uint16(i) // §9: regenerate, don't trust disk
	}
	return nil
}

func (v *Volume) initializeEmpty(totalBytes, blockSize, maxFiles, maxBlocks uint32) error {
	v.hdr = header{Magic: Magic, TotalBytes: totalBytes, BlockSize: blockSize, MaxFiles: maxFiles, MaxBlocks: maxBlocks}
	v.table = newInodeTable(maxFiles)
	v.alloc = newAllocator(maxBlocks)

	if err := v.dev.write(0, v.hdr.marshal()); err != nil {
		return newErr(Io, "open", "", err)
	}
	if err := v.flushAllEntries(); err != nil {
		return err
	}
	if err := v.flushAllNodes(); err != nil {
		return err
	}
	zero := make([]byte, blockSize)
	for i := 0; i < int(maxBlocks); i++ {
		if err := v.dev.write(v.lay.blockOffset(i), zero); err != nil {
			return newErr(Io, "open", "", err)
		}
	}
	return nil
}

func (v *Volume) flushAllEntries() error {
	for i := range v.table.entries {
		if err := v.flushEntry(i); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) flushEntry(slot int) error {
	buf := v.table.entries[slot].marshal()
	if err := v.dev.write(v.lay.entryOffset(slot), buf); err != nil {
		return newErr(Io, "flushEntry", v.table.entries[slot].Name, err)
	}
	return nil
}

func (v *Volume) flushAllNodes() error {
	for i := range v.alloc.nodes {
		if err := v.flushNode(i); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) flushNode(idx int) error {
	v.alloc.nodes[idx].BlockIndex = uint16(idx)
	buf := v.alloc.nodes[idx].marshal()
	if err := v.dev.write(v.lay.nodeOffset(idx), buf); err != nil {
		return newErr(Io, "flushNode", "", err)
	}
	return nil
}

func (v *Volume) flushNodes(idx []int) error {
	for _, i := range idx {
		if err := v.flushNode(i); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) zeroBlock(idx int) error {
	buf := make([]byte, v.lay.blockSize)
	if err := v.dev.write(v.lay.blockOffset(idx), buf); err != nil {
		return newErr(Io, "zeroBlock", "", err)
	}
	return nil
}

// validateName enforces §4.5's filename validation: non-null, non-empty,
// at most 11 bytes, printable ASCII, and not all-whitespace.
func validateName(name string) error {
	if name == "" {
		return newErr(InvalidArgument, "validateName", name, nil)
	}
	if len(name) > maxNameBytes {
		return newErr(InvalidArgument, "validateName", name, nil)
	}
	blank := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7e {
			return newErr(InvalidArgument, "validateName", name, nil)
		}
		if !strings.ContainsRune(" \t\r\n\v\f", rune(c)) {
			blank = false
		}
	}
	if blank {
		return newErr(InvalidArgument, "validateName", name, nil)
	}
	return nil
}

// CreateFile binds the lowest free inode slot to name (§4.5 createFile).
func (v *Volume) CreateFile(name string) error {
	v.gate.lock()
	defer v.gate.unlock()

	if err := validateName(name); err != nil {
		return err
	}
	if v.table.findByName(name) >= 0 {
		return newErr(AlreadyExists, "createFile", name, nil)
	}
	slot := v.table.findFree()
	if slot < 0 {
		return newErr(NoSpace, "createFile", name, nil)
	}

	v.table.entries[slot] = entry{Name: name, Size: 0, FirstBlock: -1}
	if err := v.flushEntry(slot); err != nil {
		return err
	}
	v.logger().Info("volfs: commit", "op", "createFile", "name", name)
	return nil
}

// DeleteFile zeroes and frees name's chain (if any) and returns its slot
// to the free state (§4.5 deleteFile).
func (v *Volume) DeleteFile(name string) error {
	v.gate.lock()
	defer v.gate.unlock()

	slot := v.table.findByName(name)
	if slot < 0 {
		return newErr(NotFound, "deleteFile", name, nil)
	}

	e := v.table.entries[slot]
	if e.FirstBlock >= 0 {
		chain, err := v.alloc.followChain(int(e.FirstBlock))
		if err != nil {
			return err
		}
		for _, idx := range chain {
			if err := v.zeroBlock(idx); err != nil {
				return err
			}
		}
		if err := v.alloc.freeChain(int(e.FirstBlock)); err != nil {
			return err
		}
		if err := v.flushNodes(chain); err != nil {
			return err
		}
	}

	v.table.entries[slot] = entry{Name: "", Size: 0, FirstBlock: -1}
	if err := v.flushEntry(slot); err != nil {
		return err
	}
	v.logger().Info("volfs: commit", "op", "deleteFile", "name", name)
	return nil
}

// WriteFile replaces name's content with data, truncated to 65535 bytes
// if longer (§8: documented reference behavior, not rejected). See
// §4.5 writeFile for the full commit-ordering and rollback contract.
func (v *Volume) WriteFile(name string, data []byte) error {
	v.gate.lock()
	defer v.gate.unlock()

	slot := v.table.findByName(name)
	if slot < 0 {
		return newErr(NotFound, "writeFile", name, nil)
	}

	newSize := len(data)
	if newSize > maxFileBytes {
		newSize = maxFileBytes
	}
	data = data[:newSize]

	need := 0
	if newSize > 0 {
		need = (newSize + int(v.lay.blockSize) - 1) / int(v.lay.blockSize)
	}

	if v.alloc.countFree() < need {
		return newErr(NoSpace, "writeFile", name, nil)
	}

	picked, err := v.alloc.allocateChain(need)
	if err != nil {
		return err
	}

	rollback := func() {
		for _, idx := range picked {
			_ = v.zeroBlock(idx)
		}
		v.alloc.releaseNodes(picked)
		_ = v.flushNodes(picked)
	}

	remaining := data
	for i, idx := range picked {
		chunkLen := int(v.lay.blockSize)
		if chunkLen > len(remaining) {
			chunkLen = len(remaining)
		}
		chunk := remaining[:chunkLen]
		remaining = remaining[chunkLen:]

		buf := make([]byte, v.lay.blockSize)
		copy(buf, chunk)
		if err := v.dev.write(v.lay.blockOffset(idx), buf); err != nil {
			rollback()
			return newErr(Io, "writeFile", name, err)
		}
		if i > 0 {
			v.alloc.link(picked[i-1], idx)
		}
	}

	if err := v.flushNodes(picked); err != nil {
		rollback()
		return err
	}

	oldHead := int(v.table.entries[slot].FirstBlock)
	oldSize := v.table.entries[slot].Size

	newHead := -1
	if need > 0 {
		newHead = picked[0]
	}
	v.table.entries[slot].Size = uint16(newSize)
	v.table.entries[slot].FirstBlock = int16(newHead)

	if err := v.flushEntry(slot); err != nil {
		// Entry flush failed: commit did not happen. Roll back the new
		// chain just like any other pre-commit failure.
		v.table.entries[slot].Size = oldSize
		v.table.entries[slot].FirstBlock = int16(oldHead)
		rollback()
		return err
	}
	v.logger().Info("volfs: commit", "op", "writeFile", "name", name, "size", newSize)

	if oldHead >= 0 {
		oldChain, err := v.alloc.followChain(oldHead)
		if err != nil {
			// Tolerable leak per §9: entry already reflects the new
			// content; the old chain becomes unreachable garbage.
			return nil
		}
		for _, idx := range oldChain {
			if err := v.zeroBlock(idx); err != nil {
				return nil
			}
		}
		if err := v.alloc.freeChain(oldHead); err != nil {
			return nil
		}
		_ = v.flushNodes(oldChain)
	}

	return nil
}

// ReadFile returns the full content of name (§4.5 readFile).
func (v *Volume) ReadFile(name string) ([]byte, error) {
	v.gate.rlock()
	defer v.gate.runlock()

	slot := v.table.findByName(name)
	if slot < 0 {
		return nil, newErr(NotFound, "readFile", name, nil)
	}

	e := v.table.entries[slot]
	if e.Size == 0 {
		return []byte{}, nil
	}
	if e.FirstBlock < 0 {
		return nil, newErr(Corrupt, "readFile", name, nil)
	}

	out := make([]byte, 0, e.Size)
	remaining := int(e.Size)
	i := int(e.FirstBlock)
	for remaining > 0 {
		if i < 0 || i >= len(v.alloc.nodes) {
			return nil, newErr(Corrupt, "readFile", name, nil)
		}
		chunkLen := int(v.lay.blockSize)
		if chunkLen > remaining {
			chunkLen = remaining
		}
		buf := make([]byte, chunkLen)
		if err := v.dev.read(v.lay.blockOffset(i), buf); err != nil {
			return nil, newErr(Io, "readFile", name, err)
		}
		out = append(out, buf...)
		remaining -= chunkLen

		next := v.alloc.nodes[i].Next
		if remaining > 0 {
			if next < 0 {
				return nil, newErr(Corrupt, "readFile", name, nil)
			}
			i = int(next)
		}
	}
	return out, nil
}

// ListFiles returns the names of all live entries in slot order (§4.5
// listFiles).
func (v *Volume) ListFiles() []string {
	v.gate.rlock()
	defer v.gate.runlock()

	names := v.table.listNames()
	if names == nil {
		return []string{}
	}
	return names
}

// CountFree returns the number of currently-free data blocks.
func (v *Volume) CountFree() int {
	v.gate.rlock()
	defer v.gate.runlock()
	return v.alloc.countFree()
}

// Close releases the backing file. It does not flush anything, since
// every successful operation has already committed its mutations (§3
// invariant 8).
func (v *Volume) Close() error {
	v.gate.lock()
	defer v.gate.unlock()
	if err := v.dev.close(); err != nil {
		return newErr(Io, "close", "", err)
	}
	return nil
}
