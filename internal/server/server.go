// Package server implements the line-oriented TCP front end (§6.3): a
// thin wrapper so volfs.Volume can be driven from outside the process.
// It introduces no invariant of its own beyond the protocol it speaks.
package server

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/KarpelesLab/volfs"
)

// Config bounds one server's behavior, independent of volfs.Config so the
// server package has no import-cycle dependency on the root package beyond
// *volfs.Volume itself.
type Config struct {
	Workers            int
	MaxLineBytes       int
	MaxCommandsPerConn int
	ReadTimeout        time.Duration
}

// Server accepts connections and speaks the §6.3 line protocol against a
// shared *volfs.Volume. Every connection is handled on its own goroutine
// (§5); the volume's own gate serializes the actual operations.
type Server struct {
	vol *volfs.Volume
	cfg Config
	log *slog.Logger

	// sem bounds the number of connections served concurrently; a
	// connection that cannot acquire a slot immediately is told the
	// server is busy and dropped, rather than queued, per §6.3's
	// "server busy, try again later" requirement.
	sem chan struct{}
}

func New(vol *volfs.Volume, cfg Config, log *slog.Logger) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		vol: vol,
		cfg: cfg,
		log: log,
		sem: make(chan struct{}, cfg.Workers),
	}
}

// Serve accepts connections on ln until it returns an error (typically
// because ln was closed by the caller).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		select {
		case s.sem <- struct{}{}:
			go func() {
				defer func() { <-s.sem }()
				s.handleConn(conn)
			}()
		default:
			fmt.Fprintf(conn, "ERROR server busy, try again later\n")
			conn.Close()
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "OK volfs\n"); err != nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), s.cfg.MaxLineBytes)

	commands := 0
	for {
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		if !scanner.Scan() {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\r")

		commands++
		if commands > s.cfg.MaxCommandsPerConn {
			fmt.Fprintf(conn, "ERROR too many commands\n")
			return
		}

		quit, err := s.dispatch(conn, line)
		if err != nil {
			return
		}
		if quit {
			return
		}
	}
}

// dispatch handles a single line and reports whether the connection
// should be closed (err non-nil means an I/O error writing the response;
// quit true means a clean QUIT).
func (s *Server) dispatch(conn net.Conn, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		_, err = fmt.Fprintf(conn, "ERROR empty command\n")
		return false, err
	}
	if len(fields) > 3 {
		_, err = fmt.Fprintf(conn, "ERROR too many arguments\n")
		return false, err
	}

	verb := strings.ToUpper(fields[0])
	switch verb {
	case "CREATE":
		if len(fields) != 2 {
			_, err = fmt.Fprintf(conn, "ERROR usage: CREATE <name>\n")
			return false, err
		}
		if e := s.vol.CreateFile(fields[1]); e != nil {
			_, err = fmt.Fprintf(conn, "ERROR %s\n", e)
			return false, err
		}
		_, err = fmt.Fprintf(conn, "OK\n")
		return false, err

	case "WRITE":
		if len(fields) != 3 {
			_, err = fmt.Fprintf(conn, "ERROR usage: WRITE <name> <hex>\n")
			return false, err
		}
		data, decErr := hex.DecodeString(fields[2])
		if decErr != nil {
			_, err = fmt.Fprintf(conn, "ERROR %s\n", volfs.ErrInvalidArgument)
			return false, err
		}
		if e := s.vol.WriteFile(fields[1], data); e != nil {
			_, err = fmt.Fprintf(conn, "ERROR %s\n", e)
			return false, err
		}
		_, err = fmt.Fprintf(conn, "OK\n")
		return false, err

	case "READ":
		if len(fields) != 2 {
			_, err = fmt.Fprintf(conn, "ERROR usage: READ <name>\n")
			return false, err
		}
		data, e := s.vol.ReadFile(fields[1])
		if e != nil {
			_, err = fmt.Fprintf(conn, "ERROR %s\n", e)
			return false, err
		}
		_, err = fmt.Fprintf(conn, "OK %s\n", hex.EncodeToString(data))
		return false, err

	case "DELETE":
		if len(fields) != 2 {
			_, err = fmt.Fprintf(conn, "ERROR usage: DELETE <name>\n")
			return false, err
		}
		if e := s.vol.DeleteFile(fields[1]); e != nil {
			_, err = fmt.Fprintf(conn, "ERROR %s\n", e)
			return false, err
		}
		_, err = fmt.Fprintf(conn, "OK\n")
		return false, err

	case "LIST":
		if len(fields) != 1 {
			_, err = fmt.Fprintf(conn, "ERROR usage: LIST\n")
			return false, err
		}
		_, err = fmt.Fprintf(conn, "OK %s\n", strings.Join(s.vol.ListFiles(), ","))
		return false, err

	case "HELP":
		_, err = fmt.Fprintf(conn, "OK CREATE <name> | WRITE <name> <hex> | READ <name> | DELETE <name> | LIST | HELP | QUIT\n")
		return false, err

	case "QUIT":
		_, err = fmt.Fprintf(conn, "OK bye\n")
		return true, err

	default:
		_, err = fmt.Fprintf(conn, "ERROR unknown command %q\n", fields[0])
		return false, err
	}
}
