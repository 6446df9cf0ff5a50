// Command online-server runs the tunnel server: it accepts client control
// channels over WebSocket and exposes one public HTTP port per client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firdavsDev/online-cli/internal/config"
	"github.com/firdavsDev/online-cli/internal/serverapp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	fs := flag.NewFlagSet("online-server", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: online-server [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	cfg, err := config.LoadServer(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		logger.Printf("config error: %v", err)
		return 1
	}

	srv, err := serverapp.New(serverapp.Config{
		ListenAddr:     cfg.ListenAddr,
		PortMin:        cfg.PortMin,
		PortMax:        cfg.PortMax,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxClients:     cfg.MaxClients,
		Logger:         logger,
	})
	if err != nil {
		logger.Printf("config error: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received %v, draining sessions...", sig)
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Printf("server error: %v", err)
		return 2
	}
	logger.Println("shut down cleanly")
	return 0
}
