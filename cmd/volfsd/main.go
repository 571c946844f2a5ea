// Command volfsd runs the line-oriented TCP front end (§6.3) in front of
// a volfs.Volume (§4.5). Config precedence: defaults, then a JSONC config
// file, then flags.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/KarpelesLab/volfs"
	"github.com/KarpelesLab/volfs/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "volfsd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("volfsd", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a JSONC config file")
	listenAddr := flags.String("listen", "", "override the configured listen address")
	volPath := flags.String("path", "", "override the configured volume image path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg := volfs.DefaultConfig()
	if *configPath != "" {
		loaded, err := volfs.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *volPath != "" {
		cfg.Path = *volPath
	}

	log := slog.Default()

	vol, err := volfs.Open(cfg.Path, cfg.TotalBytes, cfg.BlockSize, cfg.MaxFiles, cfg.MaxBlocks, volfs.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer vol.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	srv := server.New(vol, server.Config{
		Workers:            cfg.Workers,
		MaxLineBytes:       cfg.MaxLineBytes,
		MaxCommandsPerConn: cfg.MaxCommandsPerConn,
		ReadTimeout:        cfg.ReadTimeout,
	}, log)

	log.Info("volfsd: listening", "addr", ln.Addr().String(), "volume", cfg.Path)
	return srv.Serve(ln)
}
