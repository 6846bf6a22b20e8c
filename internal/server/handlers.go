// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/kml2dxf/internal/convert"
	"github.com/woozymasta/kml2dxf/internal/preview"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// Form fields of the conversion endpoints.
const (
	FieldFile = "kml_file"
	FieldEPSG = "epsg_code"
)

// WarningsHeader carries the number of non fatal diagnostics of a conversion.
const WarningsHeader = "X-Conversion-Warnings"

const kindBadRequest = "bad_request"

var errMissingFile = errors.New("no KML file selected")

// apiError is the JSON body of every failed API request.
type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Hint  string `json:"hint,omitempty"`
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/favicon.ico" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the upload page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleCRSList serves the registered coordinate reference systems.
func (s *ServerContext) HandleCRSList(w http.ResponseWriter, r *http.Request) {
	if match := r.Header.Get("If-None-Match"); match == s.crsETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", s.crsETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.crsJSON)
}

// HandleConvert converts the uploaded KML file and returns the DXF drawing
// as an attachment.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	res, filename, ok := s.convert(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := res.Document.WriteTo(&buf); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/dxf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename+".dxf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(WarningsHeader, strconv.Itoa(len(res.Diagnostics)))
	_, _ = w.Write(buf.Bytes())
}

// HandlePreview converts the uploaded KML file and returns a WebP rendering
// of the drawing.
func (s *ServerContext) HandlePreview(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.convert(w, r)
	if !ok {
		return
	}

	opts := s.Preview
	if v := r.URL.Query().Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 || size > 4096 {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "size must be between 1 and 4096", Kind: kindBadRequest})
			return
		}
		opts.Size = size
	}

	var buf bytes.Buffer
	if err := preview.Write(&buf, res.Document.Entities(), opts); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(WarningsHeader, strconv.Itoa(len(res.Diagnostics)))
	_, _ = w.Write(buf.Bytes())
}

// convert reads the multipart form and runs the conversion. On failure the
// error response is already written and ok is false.
func (s *ServerContext) convert(w http.ResponseWriter, r *http.Request) (res *convert.Result, filename string, ok bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed", Kind: kindBadRequest})
		return nil, "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUpload)
	if err := r.ParseMultipartForm(s.Config.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{
				Error: fmt.Sprintf("upload exceeds %d bytes", s.Config.MaxUpload),
				Kind:  kindBadRequest,
			})
			return nil, "", false
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: "expected a multipart form: " + err.Error(), Kind: kindBadRequest})
		return nil, "", false
	}

	file, header, err := r.FormFile(FieldFile)
	if err != nil || header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: errMissingFile.Error(), Kind: kindBadRequest})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	code := strings.TrimSpace(r.FormValue(FieldEPSG))
	if code == "" && s.Config.DefaultEPSG > 0 {
		code = strconv.Itoa(s.Config.DefaultEPSG)
	}

	res, err = s.Converter.ConvertCode(file, code)
	if err != nil {
		log.Warn().
			Err(err).
			Str("file", header.Filename).
			Str("epsg", code).
			Str("kind", convert.Kind(err)).
			Msg("Conversion failed")
		writeError(w, err)
		return nil, "", false
	}

	for _, d := range res.Diagnostics {
		log.Warn().
			Str("file", header.Filename).
			Str("kind", string(d.Kind)).
			Int("feature", d.Feature).
			Str("geometry", d.GeometryType).
			Msg(d.Message)
	}

	points, polylines := res.Document.Stats()
	log.Info().
		Str("file", header.Filename).
		Int("epsg", res.Target.Code).
		Int("features", res.Features).
		Int("points", points).
		Int("polylines", polylines).
		Int("warnings", len(res.Diagnostics)).
		Msg("Conversion completed")

	return res, DownloadName(header.Filename, s.Config.FilenameSuffix), true
}

// DownloadName derives the attachment name, without extension, from the
// uploaded file name.
func DownloadName(uploaded, suffix string) string {
	base := filepath.Base(strings.ReplaceAll(uploaded, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '/' {
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "drawing"
	}
	return base + suffix
}

// writeError maps conversion failures to status codes.
func writeError(w http.ResponseWriter, err error) {
	kind := convert.Kind(err)

	status := http.StatusInternalServerError
	switch kind {
	case convert.KindInvalidTargetCRS:
		status = http.StatusBadRequest
	case convert.KindMalformedSource, convert.KindReprojection:
		status = http.StatusUnprocessableEntity
	}

	body := apiError{Error: err.Error(), Kind: kind}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		body.Hint = strings.Join(hints, "; ")
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Internal error")
		body.Error = "internal error"
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}
