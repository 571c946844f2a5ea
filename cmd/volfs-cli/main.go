// Command volfs-cli is an interactive REPL client for the §6.3 line
// protocol, grounded on calvinalkan-agent-task/cmd/sloty's peterh/liner
// prompt loop.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "volfs-cli:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("volfs-cli", flag.ContinueOnError)
	addr := flags.String("addr", "127.0.0.1:9090", "volfsd address to connect to")
	if err := flags.Parse(args); err != nil {
		return err
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	greeting, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	fmt.Print(greeting)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("volfs> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if _, err := fmt.Fprintf(conn, "%s\n", input); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		resp, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		fmt.Print(resp)

		if strings.EqualFold(strings.Fields(input)[0], "QUIT") {
			return nil
		}
	}
}
