package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/kml2dxf/internal/config"
	"github.com/woozymasta/kml2dxf/internal/logger"
	"github.com/woozymasta/kml2dxf/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"       env:"CONFIG_FILE"    description:"Path to configuration file, defaults are used when empty"`
	Addr        string `short:"a" long:"addr"         env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port        int    `short:"p" long:"port"         env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	DefaultEPSG int    `short:"e" long:"default-epsg" env:"DEFAULT_EPSG"   description:"EPSG code used when a request leaves it empty"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.DefaultEPSG <= 0 && opts.DefaultEPSG > 0 {
		cfg.DefaultEPSG = opts.DefaultEPSG
	}

	srvCtx, err := server.NewServerContext(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	log.Info().
		Str("addr", listenAddr).
		Int("default_epsg", cfg.DefaultEPSG).
		Str("layer", cfg.Layer).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
