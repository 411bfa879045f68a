package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Create(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	ShowStatus(ctx context.Context) error
	ListDead(ctx context.Context) error
	RetryDead(ctx context.Context) error
	Discard(ctx context.Context, args []string) error
	SetNetwork(ctx context.Context, mode string) error
	Drain(ctx context.Context) error
}

const helpText = `Available commands:
  create <collection> <id> k=v...   queue a document create
  update <collection> <id> k=v...   queue a document update
  delete <collection> <id>          queue a document delete
  upload <file> <dest> [k=v...]     queue a file upload
  status                            show queue state
  dead                              list dead letters
  retry-dead                        requeue all dead letters
  discard <id>                      drop a queued item or dead letter
  online | offline | auto           force or release the network state
  drain                             replay the queues now
  exit | quit                       leave the program`

// runREPL reads commands from scanner until EOF, "exit"/"quit" or ctx is done,
// and dispatches them to a. promptFn is printed before each read unless empty.
//
// Errors returned by command handlers are printed and otherwise ignored, so a
// failed command never ends the session.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner) {
	for ctx.Err() == nil {
		if p := promptFn(); p != "" {
			printlnFn(p)
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "create":
			err = a.Create(ctx, args)
		case "update":
			err = a.Update(ctx, args)
		case "delete":
			err = a.Delete(ctx, args)
		case "upload":
			err = a.Upload(ctx, args)
		case "status":
			err = a.ShowStatus(ctx)
		case "dead":
			err = a.ListDead(ctx)
		case "retry-dead":
			err = a.RetryDead(ctx)
		case "discard":
			err = a.Discard(ctx, args)
		case "online", "offline", "auto":
			err = a.SetNetwork(ctx, cmd)
		case "drain":
			err = a.Drain(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
