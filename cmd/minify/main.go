package main

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/woozymasta/kml2dxf/internal/logger"

	"github.com/cockroachdb/errors"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Dir string `short:"d" long:"dir" env:"ASSETS_DIR" description:"Assets directory" default:"assets"`
}

type PageData struct {
	CSS string
	JS  string
	SVG string
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

	size, err := build(opts.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", opts.Dir).Msg("Failed to build index page")
	}

	log.Info().
		Str("file", filepath.Join(opts.Dir, "index.html")).
		Int("bytes", size).
		Msg("minify done")
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

// minifyFile reads dir/name and minifies it as mediatype.
func minifyFile(m *minify.M, dir, name, mediatype string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", name)
	}
	out, err := m.String(mediatype, string(raw))
	if err != nil {
		return "", errors.Wrapf(err, "minify %s", name)
	}
	return out, nil
}

// build renders index.html.tpl with the minified stylesheet, script and
// logo, and writes the minified page to dir/index.html.
func build(dir string) (int, error) {
	m := newMinifier()

	var data PageData
	for _, src := range []struct {
		name, mediatype string
		dst             *string
	}{
		{"style.css", "text/css", &data.CSS},
		{"script.js", "text/javascript", &data.JS},
		{"favicon.svg", "image/svg+xml", &data.SVG},
	} {
		out, err := minifyFile(m, dir, src.name, src.mediatype)
		if err != nil {
			return 0, err
		}
		*src.dst = out
		log.Debug().Str("file", src.name).Int("bytes", len(out)).Msg("Minified")
	}

	htmlRaw, err := os.ReadFile(filepath.Join(dir, "index.html.tpl"))
	if err != nil {
		return 0, errors.Wrap(err, "read template")
	}

	tmpl, err := template.New("index").Parse(string(htmlRaw))
	if err != nil {
		return 0, errors.Wrap(err, "parse template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return 0, errors.Wrap(err, "execute template")
	}

	finalHTML, err := m.String("text/html", buf.String())
	if err != nil {
		return 0, errors.Wrap(err, "minify HTML")
	}

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(finalHTML), 0644); err != nil {
		return 0, err
	}
	return len(finalHTML), nil
}
