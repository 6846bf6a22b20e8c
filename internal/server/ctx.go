package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/woozymasta/kml2dxf/assets"
	"github.com/woozymasta/kml2dxf/internal/config"
	"github.com/woozymasta/kml2dxf/internal/convert"
	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/preview"

	"github.com/rs/zerolog/log"
)

// CRSList is the body of the registry listing.
type CRSList struct {
	Systems []crs.Definition `json:"systems"`
	Default int              `json:"default,omitempty"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Converter *convert.Converter
	Preview   preview.Options
	IndexHTML []byte
	Favicon   []byte

	crsJSON []byte
	crsETag string
}

// NewServerContext builds the registry from the configuration and prepares
// the converter shared by all requests.
func NewServerContext(cfg *config.Config) (*ServerContext, error) {
	log.Info().Int("config_crs_count", len(cfg.CRS)).Msg("Initializing server context")

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	for _, d := range cfg.CRS {
		log.Debug().
			Int("code", d.Code).
			Str("name", d.Name).
			Bool("geographic", d.Geographic).
			Msg("CRS definition added from config")
	}

	if cfg.DefaultEPSG != 0 {
		if _, err := reg.Lookup(cfg.DefaultEPSG); err != nil {
			log.Warn().Err(err).Int("default_epsg", cfg.DefaultEPSG).Msg("Default EPSG code is not registered, ignoring")
			cfg.DefaultEPSG = 0
		}
	}

	list := CRSList{Systems: reg.All(), Default: cfg.DefaultEPSG}
	crsJSON, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("crs_count", reg.Len()).
		Str("layer", cfg.Layer).
		Int64("max_upload", cfg.MaxUpload).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Converter: convert.New(reg, convert.WithLayer(cfg.Layer)),
		Preview:   cfg.PreviewOptions(),
		IndexHTML: assets.Index,
		Favicon:   assets.Favicon,
		crsJSON:   crsJSON,
		crsETag:   fmt.Sprintf(`"%x-%x"`, reg.Len(), len(crsJSON)),
	}, nil
}

// Routes registers the handlers on a new mux wrapped in the middleware.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/crs", s.HandleCRSList)
	mux.HandleFunc("/api/convert", s.HandleConvert)
	mux.HandleFunc("/api/preview", s.HandlePreview)
	// form target of the upload page
	mux.HandleFunc("/converter", s.HandleConvert)
	mux.HandleFunc("/favicon.ico", s.HandleFavicon)
	mux.HandleFunc("/", s.HandleIndex)

	return RequestLogger(Recoverer(mux))
}
