package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"karl/pubsub"
	"karl/repl"
	"karl/spreadsheet"
	"karl/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "-h", "--help", "help":
		usage()
	case "repl":
		os.Exit(replCommand(os.Args[2:]))
	case "repl-server":
		os.Exit(replServerCommand(os.Args[2:]))
	case "repl-client":
		os.Exit(replClientCommand(os.Args[2:]))
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  karl <command> [arguments]\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  repl                      start the interactive cell-formula REPL\n")
	fmt.Fprintf(os.Stderr, "  repl-server [--addr=...]  start a REPL server clients can connect to\n")
	fmt.Fprintf(os.Stderr, "  repl-client <host:port>   connect to a remote REPL server\n")
	fmt.Fprintf(os.Stderr, "  serve [addr]              start the reactive spreadsheet websocket server\n")
	fmt.Fprintf(os.Stderr, "  help                      show this help message\n")
	fmt.Fprintf(os.Stderr, "\n'serve' options:\n")
	fmt.Fprintf(os.Stderr, "  --pubsub=tcp://host:port   also broadcast cell changes over ZeroMQ PUB\n")
	fmt.Fprintf(os.Stderr, "  --store=<postgres DSN>     enable /sheets/<id> load/save against Postgres\n")
}

func replCommand(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "repl takes no arguments\n")
		return 2
	}
	repl.Start(os.Stdin, os.Stdout)
	return 0
}

func replServerCommand(args []string) int {
	addr := "localhost:9000"
	for i := 0; i < len(args); i++ {
		switch {
		case strings.HasPrefix(args[i], "--addr="):
			addr = strings.TrimPrefix(args[i], "--addr=")
		case args[i] == "--addr":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--addr requires a value\n")
				return 2
			}
			addr = args[i+1]
			i++
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n", args[i])
			return 2
		}
	}
	if err := repl.Server(addr); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		return 1
	}
	return 0
}

func replClientCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: karl repl-client <host:port>\n")
		return 2
	}
	if err := repl.Client(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "client error: %v\n", err)
		return 1
	}
	return 0
}

func serveCommand(args []string) int {
	addr := ":8080"
	pubsubAddr := ""
	storeDSN := ""

	positional := []string{}
	for i := 0; i < len(args); i++ {
		switch {
		case strings.HasPrefix(args[i], "--pubsub="):
			pubsubAddr = strings.TrimPrefix(args[i], "--pubsub=")
		case strings.HasPrefix(args[i], "--store="):
			storeDSN = strings.TrimPrefix(args[i], "--store=")
		case strings.HasPrefix(args[i], "-"):
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", args[i])
			return 2
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) > 0 {
		addr = positional[0]
		addr = strings.Replace(addr, "localhost", "", 1)
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
	}

	var notifier *pubsub.Notifier
	if pubsubAddr != "" {
		n, err := pubsub.NewNotifier(pubsubAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pubsub init failed: %v\n", err)
			return 1
		}
		defer n.Close()
		notifier = n
	}

	srv := spreadsheet.NewServer(notifier)

	if storeDSN != "" {
		st, err := store.Open(context.Background(), storeDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store init failed: %v\n", err)
			return 1
		}
		defer st.Close()
		srv.Store = st
	}

	if err := srv.Start(addr); err != nil {
		fmt.Fprintf(os.Stderr, "spreadsheet server error: %v\n", err)
		return 1
	}
	return 0
}
