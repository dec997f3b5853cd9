// Command aethercask is the command-line client: it issues a single
// get, set, or remove request against a running aethercaskd and exits.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/aethercask/aethercask/internal/client"
)

const defaultAddr = "127.0.0.1:4000"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 1
	}

	switch args[0] {
	case "get":
		return runGet(args[1:], out, errOut)
	case "set":
		return runSet(args[1:], out, errOut)
	case "rm":
		return runRemove(args[1:], out, errOut)
	case "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintln(errOut, "error: unknown command:", args[0])
		printUsage(errOut)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: aethercask <get|set|rm> [--addr IP:PORT] ...")
}

func runGet(args []string, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("get", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	addr := flagSet.String("addr", defaultAddr, "server address")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	rest := flagSet.Args()
	if len(rest) != 1 {
		fmt.Fprintln(errOut, "error: get requires exactly one KEY argument")
		return 1
	}

	c, err := client.Connect(*addr)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer c.Close()

	value, err := c.Get(rest[0])
	if errors.Is(err, client.ErrKeyNotFound) {
		fmt.Fprintln(out, "Key not found")
		return 0
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	fmt.Fprintln(out, value)
	return 0
}

func runSet(args []string, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("set", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	addr := flagSet.String("addr", defaultAddr, "server address")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	rest := flagSet.Args()
	if len(rest) != 2 {
		fmt.Fprintln(errOut, "error: set requires exactly KEY and VALUE arguments")
		return 1
	}

	c, err := client.Connect(*addr)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer c.Close()

	if err := c.Set(rest[0], rest[1]); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func runRemove(args []string, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("rm", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	addr := flagSet.String("addr", defaultAddr, "server address")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	rest := flagSet.Args()
	if len(rest) != 1 {
		fmt.Fprintln(errOut, "error: rm requires exactly one KEY argument")
		return 1
	}

	c, err := client.Connect(*addr)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer c.Close()

	if err := c.Remove(rest[0]); err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			fmt.Fprintln(errOut, "Key not found")
			return 1
		}
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}
