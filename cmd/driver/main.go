// Command driver loads the point list, asks the routing service for a
// visiting order and prints it.
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
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Error(err.Error()))
		return 1
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := client.NewHTTPSender(cfg.HTTPTimeout, log)
	loader := client.NewPointLoader(sender, cfg.DataURL, client.WithLogger(log))
	requester := client.NewRouteRequester(sender, cfg.RouteURL(), cfg.Current, loader, client.WithLogger(log))

	if err := loader.Load(ctx); err != nil {
		fmt.Println(render.Driver(loader.State(), requester.State()))
		return 1
	}

	err = requester.RequestRoute(ctx)
	fmt.Println(render.Driver(loader.State(), requester.State()))
	if err != nil {
		return 1
	}
	return 0
}
