// Command online is the tunnel client: it connects a local service to the
// tunnel server and prints the public URL it has been assigned.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/firdavsDev/online-cli/internal/config"
	"github.com/firdavsDev/online-cli/internal/forwarder"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	fs := flag.NewFlagSet("online", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: online --port LOCAL_PORT [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	cfg, err := config.LoadClient(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		logger.Printf("config error: %v", err)
		return 1
	}

	instanceID, err := config.LocalInstanceID()
	if err != nil {
		logger.Printf("warning: could not persist local instance id: %v", err)
	}

	serverHost := serverDisplayHost(cfg.ServerURL)

	fwd := &forwarder.Forwarder{
		ServerURL:  cfg.ServerURL,
		LocalHost:  cfg.LocalHost,
		LocalPort:  cfg.LocalPort,
		InstanceID: instanceID,
		Logger:     logger,
		OnRegistered: func(clientID string, publicPort int) {
			fmt.Printf("Tunnel established! Public URL: http://%s:%d\n", serverHost, publicPort)
			logger.Printf("registered as %s", clientID)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received %v, shutting down...", sig)
		cancel()
	}()

	err = fwd.Run(ctx)
	if err != nil {
		if errors.Is(err, forwarder.ErrGaveUp) {
			logger.Printf("giving up: %v", err)
			return 2
		}
		logger.Printf("config error: %v", err)
		return 1
	}
	logger.Println("shut down cleanly")
	return 0
}

// serverDisplayHost extracts the host to show in the printed public URL
// (http://<server_host>:<public_port>) from the control-channel URL.
func serverDisplayHost(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "127.0.0.1"
	}
	host := u.Hostname()
	if host == "" {
		return "127.0.0.1"
	}
	return host
}
