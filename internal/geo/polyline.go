package geo

import (
	"github.com/robolab-sim/engine/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// GroundTrack builds the X/Z line string travelled through a list of
// positions. Fewer than two positions give an empty line string.
func GroundTrack(positions []core.Position3D) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, nil
	}
	flatCoords := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		flatCoords = append(flatCoords, p.X, p.Z)
	}
	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// GroundTrackLength is the planar length of the path through positions.
// A track that cannot form a line string, such as a robot that never
// moved, has length 0.
func GroundTrackLength(positions []core.Position3D) float64 {
	ls, err := GroundTrack(positions)
	if err != nil {
		return 0
	}
	return ls.Length()
}
