package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/flagx"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/config"
)

// mintSubject returns the value of -m, the subject to mint a token for.
func mintSubject() string {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	subject := fs.String("m", "", "print an access token for this subject and exit")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-m"}))
	return *subject
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if subject := mintSubject(); subject != "" {
		token, err := server.MintToken(cfg, subject)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
