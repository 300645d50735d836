package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"growlink/backend/global"
	"growlink/backend/initialize"
	"growlink/backend/server"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	app, err := initialize.Build(*cfgPath)
	if err != nil {
		global.Logger.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Sweeper.Run(ctx)

	if err := server.StartHTTPServer(app.Cfg.HTTP.Host, app.Cfg.HTTP.Port, app.Router); err != nil {
		global.Logger.Error().Err(err).Msg("http server failed")
		os.Exit(1)
	}
	global.Logger.Info().Str("host", app.Cfg.HTTP.Host).Int("port", app.Cfg.HTTP.Port).Msg("backend listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	global.Logger.Info().Msg("shutting down")
}
