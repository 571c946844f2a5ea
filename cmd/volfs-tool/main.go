// Command volfs-tool inspects a volfs image offline, without a running
// server: ls/cat/info/export/mount over the raw image file.
package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/volfs"
	"github.com/KarpelesLab/volfs/internal/archive"
	"github.com/KarpelesLab/volfs/internal/fuseview"
)

const usage = `volfs-tool - offline volfs image inspector

Usage:
  volfs-tool ls <image> <total> <block> <files> <blocks>
  volfs-tool cat <image> <total> <block> <files> <blocks> <name>
  volfs-tool info <image> <total> <block> <files> <blocks>
  volfs-tool export <image> <total> <block> <files> <blocks> <out.zst>
  volfs-tool mount <image> <total> <block> <files> <blocks> <mountpoint>

<total>/<block>/<files>/<blocks> are the volume parameters (totalBytes,
blockSize, maxFiles, maxBlocks) the image was created with; they must
match exactly or the image is reinitialized as empty (§4.5).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "help" {
		fmt.Print(usage)
		return
	}

	if len(os.Args) < 7 {
		fmt.Fprintln(os.Stderr, "Error: missing volume parameters")
		fmt.Print(usage)
		os.Exit(1)
	}

	image := os.Args[2]
	total := parseUint(os.Args[3])
	block := parseUint(os.Args[4])
	files := parseUint(os.Args[5])
	blocks := parseUint(os.Args[6])

	vol, err := volfs.Open(image, total, block, files, blocks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", image, err)
		os.Exit(1)
	}
	defer vol.Close()

	var runErr error
	switch cmd {
	case "ls":
		runErr = ls(vol)
	case "cat":
		if len(os.Args) < 8 {
			runErr = fmt.Errorf("missing file name")
			break
		}
		runErr = cat(vol, os.Args[7])
	case "info":
		runErr = info(vol)
	case "export":
		if len(os.Args) < 8 {
			runErr = fmt.Errorf("missing output path")
			break
		}
		runErr = export(vol, os.Args[7])
	case "mount":
		if len(os.Args) < 8 {
			runErr = fmt.Errorf("missing mountpoint")
			break
		}
		runErr = mount(vol, os.Args[7])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", runErr)
		os.Exit(1)
	}
}

func ls(vol *volfs.Volume) error {
	for _, name := range vol.ListFiles() {
		fmt.Println(name)
	}
	return nil
}

func cat(vol *volfs.Volume, name string) error {
	data, err := vol.ReadFile(name)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func info(vol *volfs.Volume) error {
	names := vol.ListFiles()
	fmt.Println("Volume Information")
	fmt.Println("===================")
	fmt.Printf("Files:      %d\n", len(names))
	fmt.Printf("Free blocks: %d\n", vol.CountFree())
	return nil
}

func export(vol *volfs.Volume, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return archive.Export(vol, f, archive.Zstd)
}

func mount(vol *volfs.Volume, mountpoint string) error {
	srv, err := fuseview.Mount(vol, mountpoint)
	if err != nil {
		return err
	}
	fmt.Printf("mounted at %s, press Ctrl-C or unmount to exit\n", mountpoint)
	srv.Wait()
	return nil
}

func parseUint(s string) uint32 {
	var v uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		v = v*10 + uint32(c-'0')
	}
	return v
}
