// Command aethercaskd is the key-value store server: it opens a store
// directory with the configured engine and serves the wire protocol over
// TCP until killed.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/aethercask/aethercask/internal/config"
	"github.com/aethercask/aethercask/internal/engine"
	"github.com/aethercask/aethercask/internal/server"
	"github.com/aethercask/aethercask/internal/threadpool"
)

const defaultAddr = "127.0.0.1:4000"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("aethercaskd", flag.ContinueOnError)
	addr := flagSet.String("addr", defaultAddr, "listen address (IP:PORT)")
	engineFlag := flagSet.String("engine", engine.EngineTag, "storage engine to use")
	dataDir := flagSet.String("data-dir", ".", "directory holding the store's log files")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	if *engineFlag != engine.EngineTag {
		fmt.Fprintf(errOut, "error: unsupported engine %q\n", *engineFlag)
		return 1
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(errOut, "error: loading config:", err)
		return 1
	}
	if *dataDir != "." {
		cfg.DATA_DIR = *dataDir
	}

	eng, err := engine.Open(cfg.DATA_DIR, cfg)
	if err != nil {
		fmt.Fprintln(errOut, "error: opening store:", err)
		return 1
	}
	defer eng.Close()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintln(errOut, "error: listening on", *addr, ":", err)
		return 1
	}
	defer ln.Close()

	slog.Info("aethercaskd: listening", "addr", ln.Addr(), "engine", *engineFlag, "data_dir", cfg.DATA_DIR)

	srv := server.New(eng, threadpool.NewNaive())
	if err := srv.Serve(ln); err != nil {
		slog.Error("aethercaskd: serve failed", "error", err)
		return 1
	}
	return 0
}
