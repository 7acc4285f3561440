// Command client runs the interactive chat client against a chat server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"tcpchat/internal/client"
)

func main() {
	cfg := client.DefaultConfig()

	var host string
	var port string
	fs := flag.NewFlagSet("chat-client", flag.ContinueOnError)
	fs.StringVarP(&host, "host", "H", "localhost", "Server hostname")
	fs.StringVarP(&port, "port", "p", "55555", "Server port")
	fs.IntVar(&cfg.Reconnect.MaxAttempts, "max-retries", cfg.Reconnect.MaxAttempts, "Connection attempts before giving up (0 retries forever)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Addr = net.JoinHostPort(host, port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg, os.Stdin, os.Stdout)
	if err := c.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
