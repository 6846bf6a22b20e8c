package crs

import "strings"

// Pipeline builds a PROJ pipeline definition converting coordinates from src
// to dst. Geographic coordinates enter and leave the pipeline in degrees,
// ordered longitude first.
func Pipeline(src, dst Definition) string {
	steps := []string{"+proj=pipeline"}

	if src.Geographic {
		steps = append(steps, "+step +proj=unitconvert +xy_in=deg +xy_out=rad")
	} else {
		steps = append(steps, "+step +inv "+operation(src.Proj))
	}

	if dst.Geographic {
		steps = append(steps, "+step +proj=unitconvert +xy_in=rad +xy_out=deg")
	} else {
		steps = append(steps, "+step "+operation(dst.Proj))
	}

	return strings.Join(steps, " ")
}

// operation strips parameters that only make sense on a CRS definition and
// not on a pipeline step.
func operation(def string) string {
	fields := strings.Fields(def)
	out := fields[:0]
	for _, f := range fields {
		switch f {
		case "+no_defs", "+wktext", "+type=crs":
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
