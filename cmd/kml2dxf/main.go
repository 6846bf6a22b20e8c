package main

import (
	"crypto/tls"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/woozymasta/kml2dxf/internal/config"
	"github.com/woozymasta/kml2dxf/internal/convert"
	"github.com/woozymasta/kml2dxf/internal/logger"
	"github.com/woozymasta/kml2dxf/internal/processor"

	"github.com/cockroachdb/errors"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file, defaults are used when empty"`
	EPSG        string `short:"e" long:"epsg"        env:"EPSG_CODE"   description:"Target EPSG code, falls back to default_epsg from config"`
	OutDir      string `short:"o" long:"out-dir"     env:"OUT_DIR"     description:"Output directory, next to each source when empty"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"4"`
	GeoJSON     bool   `short:"g" long:"geojson"     description:"Also write the reprojected features as GeoJSON"`
	Preview     bool   `short:"w" long:"preview"     description:"Also write a WebP preview of the drawing"`
	Force       bool   `short:"f" long:"force"       description:"Force overwrite of existing files"`

	Args struct {
		Sources []string `positional-arg-name:"source" description:"KML files or http(s) URLs" required:"1"`
	} `positional-args:"yes"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	reg, err := cfg.Registry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build CRS registry")
	}
	conv := convert.New(reg, convert.WithLayer(cfg.Layer))

	code := opts.EPSG
	if code == "" && cfg.DefaultEPSG > 0 {
		code = strconv.Itoa(cfg.DefaultEPSG)
	}
	target, err := conv.Target(code)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("epsg", code).
			Strs("hints", errors.GetAllHints(err)).
			Msg("Invalid target CRS")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        opts.Concurrency,
			MaxIdleConnsPerHost: opts.Concurrency,
		},
		Timeout: 30 * time.Second,
	}

	log.Info().
		Int("sources", len(opts.Args.Sources)).
		Int("target", target.Code).
		Str("target_name", target.Name).
		Str("layer", cfg.Layer).
		Msg("Starting conversion")

	results := processor.Run(client, conv, opts.Args.Sources, target.Code, processor.Options{
		Preview:        cfg.PreviewOptions(),
		OutDir:         opts.OutDir,
		Suffix:         cfg.FilenameSuffix,
		Concurrency:    opts.Concurrency,
		WriteGeoJSON:   opts.GeoJSON,
		WritePreview:   opts.Preview,
		Force:          opts.Force,
		MaxSourceBytes: cfg.MaxUpload,
	})

	var converted, skipped, failed, warnings int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
		case res.Skipped:
			skipped++
		default:
			converted++
			warnings += res.Diagnostics
		}
	}

	evt := log.Info()
	if failed > 0 {
		evt = log.Error()
	}
	evt.
		Int("converted", converted).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("warnings", warnings).
		Msg("Conversion finished")

	if failed > 0 {
		os.Exit(1)
	}
}
