package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lombarde1/backtunder/internal/config"
	"github.com/lombarde1/backtunder/internal/handlers"
	"github.com/lombarde1/backtunder/internal/httpserver"
	"github.com/lombarde1/backtunder/internal/logging"
)

func main() {
	var cfg config.Config
	if err := cfg.ParseFlags(); err != nil {
		fmt.Println("Server configuration error:", err)
		os.Exit(1)
	}

	logging.Logg = logging.NewLogger(cfg.LogLevel)

	server, err := handlers.NewServer(cfg)
	if err != nil {
		logging.Logg.Error("Server creation error", "error", err)
		os.Exit(1)
	}
	defer server.Store.Close()

	serv, err := httpserver.New(cfg, server)
	if err != nil {
		logging.Logg.Error("HTTP server setup error", "error", err)
		os.Exit(1)
	}
	serv.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := serv.Shutdown(context.Background()); err != nil {
		os.Exit(1)
	}
}
