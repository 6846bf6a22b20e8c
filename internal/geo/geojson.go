package geo

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSON converts the collection to a GeoJSON feature collection.
// Features without a decoded geometry are left out.
func (fc *FeatureCollection) GeoJSON() *geojson.FeatureCollection {
	out := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(fc.Features)),
	}

	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}

		props := map[string]interface{}{
			"type": f.TypeName(),
		}
		if f.Name != "" {
			props["name"] = f.Name
		}
		if f.Description != "" {
			props["description"] = f.Description
		}

		out.Features = append(out.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: props,
		})
	}

	return out
}

// MarshalGeoJSON encodes the collection as indented GeoJSON.
func (fc *FeatureCollection) MarshalGeoJSON() ([]byte, error) {
	data, err := json.MarshalIndent(fc.GeoJSON(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode GeoJSON")
	}
	return data, nil
}
