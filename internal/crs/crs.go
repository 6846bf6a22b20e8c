// Package crs holds the registry of coordinate reference systems the
// converter can reproject between, keyed by EPSG code.
package crs

import (
	_ "embed"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// WGS84 is the EPSG code of the geographic system every KML file is stored in.
const WGS84 = 4326

var (
	// ErrInvalidCode is returned when a CRS identifier is not a positive integer.
	ErrInvalidCode = errors.New("invalid EPSG code")
	// ErrUnknownCode is returned when a code is not present in the registry.
	ErrUnknownCode = errors.New("unknown EPSG code")
)

//go:embed definitions.yaml
var definitionsYAML []byte

// Definition describes one coordinate reference system.
type Definition struct {
	Name       string `yaml:"name" json:"name"`
	Proj       string `yaml:"proj" json:"proj"`
	Code       int    `yaml:"code" json:"code"`
	Geographic bool   `yaml:"geographic,omitempty" json:"geographic,omitempty"`
}

// Metric reports whether coordinates in this system are expressed in meters.
func (d Definition) Metric() bool {
	if d.Geographic {
		return false
	}
	units, ok := projParam(d.Proj, "units")
	return !ok || units == "m"
}

// Param returns the value of a +name parameter of the proj string.
func (d Definition) Param(name string) (string, bool) {
	return projParam(d.Proj, name)
}

// Validate checks that the definition can be registered.
func (d Definition) Validate() error {
	if d.Code <= 0 {
		return errors.Wrapf(ErrInvalidCode, "definition %q has code %d", d.Name, d.Code)
	}
	if _, ok := projParam(d.Proj, "proj"); !ok {
		return errors.Newf("definition EPSG:%d has no +proj parameter", d.Code)
	}
	return nil
}

// Registry maps EPSG codes to definitions. A Registry is not safe for
// concurrent Register calls; lookups on a populated registry are.
type Registry struct {
	defs map[int]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[int]Definition)}
}

// Default returns a registry populated with the embedded definitions and the
// generated UTM families.
func Default() *Registry {
	r := NewRegistry()
	if err := r.LoadYAML(definitionsYAML); err != nil {
		panic(errors.Wrap(err, "embedded CRS definitions"))
	}
	for _, d := range utmDefinitions() {
		r.defs[d.Code] = d
	}
	return r
}

// LoadYAML registers every definition of a YAML list.
func (r *Registry) LoadYAML(data []byte) error {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return errors.Wrap(err, "decode CRS definitions")
	}
	return r.Register(defs...)
}

// Register adds or replaces definitions.
func (r *Registry) Register(defs ...Definition) error {
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		r.defs[d.Code] = d
	}
	return nil
}

// Lookup returns the definition registered under code.
func (r *Registry) Lookup(code int) (Definition, error) {
	if code <= 0 {
		return Definition{}, errors.Wrapf(ErrInvalidCode, "EPSG:%d", code)
	}
	d, ok := r.defs[code]
	if !ok {
		return Definition{}, errors.WithHint(
			errors.Wrapf(ErrUnknownCode, "EPSG:%d", code),
			"GET /api/crs or crsdump lists the supported codes")
	}
	return d, nil
}

// All returns every definition ordered by code.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// ParseCode parses a user supplied identifier such as "31983" or "EPSG:31983".
func ParseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 && strings.EqualFold(s[:5], "epsg:") {
		s = s[5:]
	}
	if s == "" {
		return 0, errors.Wrap(ErrInvalidCode, "empty identifier")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Wrapf(ErrInvalidCode, "%q is not a number", s)
		}
	}
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return 0, errors.Wrapf(ErrInvalidCode, "%q is not a positive integer", s)
	}
	return code, nil
}

// projParam returns the value of +name in a proj string. Flags without a
// value report an empty string.
func projParam(def, name string) (string, bool) {
	for _, field := range strings.Fields(def) {
		field = strings.TrimPrefix(field, "+")
		key, value, _ := strings.Cut(field, "=")
		if key == name {
			return value, true
		}
	}
	return "", false
}
