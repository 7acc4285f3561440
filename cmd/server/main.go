// Command server runs the chat service: the framed TCP listener plus the
// optional WebSocket bridge.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"tcpchat/internal/server"
)

func main() {
	// Environment variables form the base configuration; flags override.
	cfg := server.NewConfigFromEnv()

	fs := flag.NewFlagSet("chat-server", flag.ContinueOnError)
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "TCP listen address")
	fs.StringVar(&cfg.WSPort, "ws-port", cfg.WSPort, "WebSocket bridge listen address (empty disables the bridge)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "origin", cfg.AllowedOrigins, "Allowed WebSocket origin (repeatable, \"*\" allows all)")
	fs.Int64Var(&cfg.MaxMessageSize, "max-message-size", cfg.MaxMessageSize, "Maximum message payload in bytes")
	fs.IntVar(&cfg.RateLimit.Burst, "rate-burst", cfg.RateLimit.Burst, "Messages allowed per rate limit interval")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println("Starting chat server...")

	srv := server.NewServer(cfg)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start chat server: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutdown signal received")
	if err := srv.Shutdown(*shutdownTimeout); err != nil {
		log.Printf("Shutdown incomplete: %v", err)
		os.Exit(1)
	}
}
