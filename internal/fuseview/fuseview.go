// Package fuseview mounts a *volfs.Volume read-only as a real OS
// filesystem: a single flat directory whose entries are ListFiles() and
// whose contents are ReadFile(name) (the volume has no directories, so
// the mount has none either). It exists purely as a debugging/inspection
// aid, binding the same go-fuse node-embedding API an inode tree would
// use, but over a flat file set instead.
package fuseview

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/KarpelesLab/volfs"
)

// root is the mount's single directory. Its children are built once, at
// mount time, from a snapshot of ListFiles()/ReadFile(); the mount does
// not observe later writes to the volume (read-only inspection, not a
// live view).
type root struct {
	fs.Inode
	vol *volfs.Volume
}

var _ fs.NodeOnAdder = (*root)(nil)

func (r *root) OnAdd(ctx context.Context) {
	for _, name := range r.vol.ListFiles() {
		data, err := r.vol.ReadFile(name)
		if err != nil {
			continue
		}
		child := r.NewPersistentInode(ctx, &file{data: data}, fs.StableAttr{Mode: syscall.S_IFREG})
		r.AddChild(name, child, true)
	}
}

// file is a single read-only regular file whose content was snapshotted
// at mount time.
type file struct {
	fs.Inode
	data []byte
}

var (
	_ fs.NodeGetattrer = (*file)(nil)
	_ fs.NodeOpener    = (*file)(nil)
	_ fs.NodeReader    = (*file)(nil)
)

func (f *file) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0o444
	out.Size = uint64(len(f.data))
	return 0
}

func (f *file) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *file) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 || int(off) > len(f.data) {
		return fuse.ReadResultData(nil), 0
	}
	end := int(off) + len(dest)
	if end > len(f.data) {
		end = len(f.data)
	}
	return fuse.ReadResultData(f.data[off:end]), 0
}

// Mount mounts vol read-only at mountpoint and returns the running fuse
// server. Callers must call server.Unmount() (or Wait()) themselves.
func Mount(vol *volfs.Volume, mountpoint string) (*fuse.Server, error) {
	root := &root{vol: vol}
	return fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "volfs",
			Name:       "volfs",
			AllowOther: false,
		},
	})
}
