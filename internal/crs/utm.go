package crs

import "fmt"

// utmFamily describes a contiguous block of EPSG codes assigned to UTM zones
// of one datum and hemisphere.
type utmFamily struct {
	datum     string
	ellps     string
	firstCode int
	firstZone int
	lastZone  int
	south     bool
}

var utmFamilies = []utmFamily{
	{datum: "WGS 84", ellps: "WGS84", firstCode: 32601, firstZone: 1, lastZone: 60},
	{datum: "WGS 84", ellps: "WGS84", firstCode: 32701, firstZone: 1, lastZone: 60, south: true},
	{datum: "SIRGAS 2000", ellps: "GRS80", firstCode: 31965, firstZone: 11, lastZone: 22},
	{datum: "SIRGAS 2000", ellps: "GRS80", firstCode: 31977, firstZone: 17, lastZone: 25, south: true},
	{datum: "ETRS89", ellps: "GRS80", firstCode: 25828, firstZone: 28, lastZone: 38},
	{datum: "NAD83", ellps: "GRS80", firstCode: 26901, firstZone: 1, lastZone: 23},
	{datum: "GDA94 / MGA", ellps: "GRS80", firstCode: 28348, firstZone: 48, lastZone: 58, south: true},
}

func utmDefinitions() []Definition {
	var defs []Definition
	for _, f := range utmFamilies {
		for zone := f.firstZone; zone <= f.lastZone; zone++ {
			hemisphere, south := "N", ""
			if f.south {
				hemisphere, south = "S", " +south"
			}

			name := fmt.Sprintf("%s / UTM zone %d%s", f.datum, zone, hemisphere)
			if f.datum == "GDA94 / MGA" {
				name = fmt.Sprintf("%s zone %d", f.datum, zone)
			}

			defs = append(defs, Definition{
				Code: f.firstCode + zone - f.firstZone,
				Name: name,
				Proj: fmt.Sprintf("+proj=utm +zone=%d%s +ellps=%s +units=m", zone, south, f.ellps),
			})
		}
	}
	return defs
}
