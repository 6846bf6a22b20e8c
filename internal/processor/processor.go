// Package processor converts batches of KML sources to DXF files with a
// pool of workers.
package processor

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/woozymasta/kml2dxf/internal/convert"
	"github.com/woozymasta/kml2dxf/internal/preview"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrDownload marks failures to fetch a remote source.
	ErrDownload = errors.New("download failed")
	// ErrDuplicateOutput marks a source whose output path is already claimed
	// by an earlier source of the same batch.
	ErrDuplicateOutput = errors.New("duplicate output path")
)

// Options controls where and what a batch writes.
type Options struct {
	Preview preview.Options
	// OutDir receives the outputs; empty means next to each local source
	// and the working directory for URLs.
	OutDir         string
	Suffix         string
	Concurrency    int
	WriteGeoJSON   bool
	WritePreview   bool
	Force          bool
	MaxSourceBytes int64
}

// Result is the outcome of one source.
type Result struct {
	Err         error
	Source      string
	Output      string
	Diagnostics int
	Entities    int
	Skipped     bool
}

type job struct {
	Index  int
	Source string
}

// Run converts every source to target and returns one result per source in
// input order. A failing source does not stop the others. Sources that map to
// an output path claimed by an earlier source fail with ErrDuplicateOutput
// and are not converted.
func Run(client *http.Client, conv *convert.Converter, sources []string, target int, opts Options) []Result {
	results := make([]Result, len(sources))
	queue := make([]job, 0, len(sources))
	claimed := make(map[string]string, len(sources))

	for i, s := range sources {
		output := OutputBase(s, opts.OutDir, opts.Suffix) + ".dxf"
		if first, ok := claimed[output]; ok {
			results[i] = Result{
				Source: s,
				Output: output,
				Err:    errors.Mark(errors.Newf("%s: output %s is also written for %s", s, output, first), ErrDuplicateOutput),
			}
			log.Error().
				Err(results[i].Err).
				Str("source", s).
				Str("output", output).
				Msg("Duplicate output path")
			continue
		}
		claimed[output] = s
		queue = append(queue, job{Index: i, Source: s})
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(queue) {
		concurrency = len(queue)
	}

	jobs := make(chan job, len(queue))
	for _, j := range queue {
		jobs <- j
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := processSource(client, conv, j.Source, target, opts)
				if res.Err != nil {
					log.Error().
						Err(res.Err).
						Str("source", j.Source).
						Str("kind", convert.Kind(res.Err)).
						Msg("Failed to convert")
				}
				// each worker owns distinct indexes
				results[j.Index] = res
			}
		}()
	}
	wg.Wait()

	return results
}

func processSource(client *http.Client, conv *convert.Converter, source string, target int, opts Options) Result {
	res := Result{Source: source}
	base := OutputBase(source, opts.OutDir, opts.Suffix)
	res.Output = base + ".dxf"

	if !opts.Force {
		if info, err := os.Stat(res.Output); err == nil && info.Size() > 0 {
			log.Debug().Str("output", res.Output).Msg("Output exists, skipping")
			res.Skipped = true
			return res
		}
	}

	r, err := openSource(client, source, opts.MaxSourceBytes)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() { _ = r.Close() }()

	out, err := conv.Convert(r, target)
	if err != nil {
		res.Err = err
		return res
	}
	res.Diagnostics = len(out.Diagnostics)
	res.Entities = len(out.Document.Entities())

	for _, d := range out.Diagnostics {
		log.Warn().
			Str("source", source).
			Str("kind", string(d.Kind)).
			Int("feature", d.Feature).
			Str("name", d.Name).
			Str("geometry", d.GeometryType).
			Msg(d.Message)
	}

	if err := writeFile(res.Output, func(w io.Writer) error {
		_, err := out.Document.WriteTo(w)
		return err
	}); err != nil {
		res.Err = err
		return res
	}

	if opts.WriteGeoJSON {
		data, err := out.Collection.MarshalGeoJSON()
		if err == nil {
			err = writeFile(base+".geojson", func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			})
		}
		if err != nil {
			res.Err = err
			return res
		}
	}

	if opts.WritePreview {
		if err := writeFile(base+".webp", func(w io.Writer) error {
			return preview.Write(w, out.Document.Entities(), opts.Preview)
		}); err != nil {
			res.Err = err
			return res
		}
	}

	points, polylines := out.Document.Stats()
	log.Info().
		Str("source", source).
		Str("output", res.Output).
		Int("points", points).
		Int("polylines", polylines).
		Int("warnings", res.Diagnostics).
		Msg("Converted")

	return res
}

// OutputBase returns the output path without extension for a source.
func OutputBase(source, outDir, suffix string) string {
	var dir, name string
	if isURL(source) {
		u, err := url.Parse(source)
		if err == nil {
			name = path.Base(u.Path)
		}
	} else {
		dir, name = filepath.Split(source)
	}

	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "drawing"
	}
	if outDir != "" {
		dir = outDir
	}
	return filepath.Join(dir, name+suffix)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// openSource opens a local file or downloads a URL. limit caps the download
// size when positive.
func openSource(client *http.Client, source string, limit int64) (io.ReadCloser, error) {
	if !isURL(source) {
		return os.Open(source)
	}

	log.Info().Str("url", source).Msg("Downloading source")
	resp, err := client.Get(source)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, source), ErrDownload)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Mark(errors.Newf("%s: status %d", source, resp.StatusCode), ErrDownload)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, source), ErrDownload)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errors.Mark(errors.Newf("%s: larger than %d bytes", source, limit), ErrDownload)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// writeFile writes through a temporary file renamed into place. dst is left
// untouched when write fails.
func writeFile(dst string, write func(io.Writer) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "write %s", dst)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
