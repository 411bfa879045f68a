package main

import (
	"context"
	"log"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/cli"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
