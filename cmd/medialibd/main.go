// Command medialibd is a minimal host process embedding medialib.Library:
// it loads configuration, initializes and starts the library against one
// or more entry points, and serves internal/server's health/events surface
// until interrupted. Grounded in style on the teacher's cmd/viewra/main.go
// config-load -> db-init -> module-wire -> graceful-shutdown-on-signal
// sequence, collapsed to medialib's single facade instead of a module
// registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ashgrove/medialib"
	"github.com/ashgrove/medialib/internal/config"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/server"
)

func main() {
	var (
		configPath  = flag.String("config", os.Getenv("MEDIALIB_CONFIG_PATH"), "path to a YAML or JSON config file")
		entryPoints = flag.String("entry-points", os.Getenv("MEDIALIB_ENTRY_POINTS"), "comma-separated file:// MRLs to discover at startup")
		listenAddr  = flag.String("listen", ":8090", "address for the health/events HTTP server")
	)
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  medialib daemon                        ")
	fmt.Println("==========================================")

	mgr := config.NewManager()
	if err := mgr.Load(*configPath); err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	cfg := mgr.Get()

	lib := medialib.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callbacks := medialib.Callbacks{
		OnDiscoveryStarted:   func(ep string) { log.Printf("discovery started: %s", ep) },
		OnDiscoveryCompleted: func(ep string) { log.Printf("discovery completed: %s", ep) },
		OnBackgroundTasksIdleChanged: func(idle bool) { log.Printf("background tasks idle: %v", idle) },
		OnParsingStatsUpdated: func(percent int) { log.Printf("parsed %d%%", percent) },
		OnMediaAdded: func(media []*model.Media) { log.Printf("%d media added", len(media)) },
	}

	if err := lib.Initialize(ctx, callbacks); err != nil {
		log.Fatalf("initialize library: %v", err)
	}
	if err := lib.Start(ctx); err != nil {
		log.Fatalf("start library: %v", err)
	}

	for _, ep := range strings.Split(*entryPoints, ",") {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		if err := lib.Discover(ep); err != nil {
			log.Printf("discover %s: %v", ep, err)
		}
	}

	srv := server.New(lib.EventBus())
	srvErrCh := make(chan error, 1)
	go func() { srvErrCh <- srv.Run(*listenAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-srvErrCh:
		log.Printf("http server exited: %v", err)
	}

	if err := lib.Stop(); err != nil {
		log.Printf("library shutdown error: %v", err)
	}
	cancel()
}
