package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	state() vault.State
	touch()
	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Add(ctx context.Context, service string) error
	Update(ctx context.Context, service string) error
	Get(ctx context.Context, service string) error
	Delete(ctx context.Context, service string) error
	List(ctx context.Context, verbose bool) error
	Generate(ctx context.Context, length int) error
	Passphrase(ctx context.Context, words int) error
	Strength(ctx context.Context) error
	Verify(ctx context.Context) error
	Remember(ctx context.Context) error
	Forget(ctx context.Context) error
}

const (
	helpUninitialized = "Available commands: setup, passphrase [words], strength, exit"
	helpLocked        = "Available commands: unlock, passphrase [words], strength, remember, forget, exit"
	helpUnlocked      = "Available commands: add <service>, update <service>, get <service>, delete <service>, " +
		"(l)ist [-v], generate [length], passphrase [words], strength, verify, lock, remember, forget, exit"
)

// runREPL reads commands from reader until EOF, "exit" or "quit" and
// dispatches them to a. Handler errors are reported and the loop goes on.
//
// Commands taking a service name print a usage line when it is missing.
// Service names may contain spaces: everything after the command is used.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gv (%s)> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return
		}
		a.touch()

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

		var cmdErr error

		switch cmd {
		case "help":
			switch a.state() {
			case vault.StateUninitialized:
				printlnFn(helpUninitialized)
			case vault.StateLocked:
				printlnFn(helpLocked)
			default:
				printlnFn(helpUnlocked)
			}

		case "setup":
			cmdErr = a.Setup(ctx)

		case "unlock":
			cmdErr = a.Unlock(ctx)

		case "lock":
			cmdErr = a.Lock(ctx)

		case "add", "update", "get", "delete":
			if arg == "" {
				printlnFn(fmt.Sprintf("Usage: %s <service>", cmd))
				continue
			}
			switch cmd {
			case "add":
				cmdErr = a.Add(ctx, arg)
			case "update":
				cmdErr = a.Update(ctx, arg)
			case "get":
				cmdErr = a.Get(ctx, arg)
			case "delete":
				cmdErr = a.Delete(ctx, arg)
			}

		case "l", "list":
			if arg != "" && arg != "-v" {
				printlnFn(fmt.Sprintf("Usage: %s [-v]", cmd))
				continue
			}
			cmdErr = a.List(ctx, arg == "-v")

		case "generate", "passphrase":
			n := 0
			if arg != "" {
				n, err = strconv.Atoi(arg)
				if err != nil || n <= 0 {
					printlnFn(fmt.Sprintf("Usage: %s [positive number]", cmd))
					continue
				}
			}
			if cmd == "generate" {
				cmdErr = a.Generate(ctx, n)
			} else {
				cmdErr = a.Passphrase(ctx, n)
			}

		case "strength":
			cmdErr = a.Strength(ctx)

		case "verify":
			cmdErr = a.Verify(ctx)

		case "remember":
			cmdErr = a.Remember(ctx)

		case "forget":
			cmdErr = a.Forget(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(describeError(cmdErr))
		}
		a.touch()
	}
}
