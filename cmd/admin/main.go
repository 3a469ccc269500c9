// Command admin uploads a CSV of points to the routing service.
//
// Usage:
//
//	admin points.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farkhanisturkia/mapsReactGo/internal/client"
	"github.com/farkhanisturkia/mapsReactGo/internal/config"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/farkhanisturkia/mapsReactGo/internal/render"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin <file.csv>")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Error(err.Error()))
		return 1
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader := client.NewUploader(client.NewHTTPSender(cfg.HTTPTimeout, log), cfg.UploadURL(), client.WithLogger(log))

	if err := uploader.SelectFile(client.FileFromPath(args[0])); err != nil {
		fmt.Println(render.Upload(uploader.State()))
		return 1
	}

	err = uploader.Submit(ctx)
	fmt.Println(render.Upload(uploader.State()))
	if err != nil {
		return 1
	}
	return 0
}
