package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultOverlapToleranceMeters is the corridor width under which two route
// vertices count as the same road.
const DefaultOverlapToleranceMeters = 4.0

// NearestVertexIndex returns the index of the vertex closest to p using squared
// planar distance in degrees, or -1 for an empty line. Good enough at city scale.
func NearestVertexIndex(line orb.LineString, p orb.Point) int {
	best := -1
	bestD := math.MaxFloat64
	for i, v := range line {
		dx := v[0] - p[0]
		dy := v[1] - p[1]
		d := dx*dx + dy*dy
		if d < bestD {
			bestD = d
			best = i
		}
	}
	return best
}

// SliceBetween returns the vertices of line from the one nearest a to the one
// nearest b, inclusive, always ordered from a toward b. An empty line yields nil.
func SliceBetween(line orb.LineString, a, b orb.Point) orb.LineString {
	from := NearestVertexIndex(line, a)
	to := NearestVertexIndex(line, b)
	if from < 0 || to < 0 {
		return nil
	}
	if from <= to {
		out := make(orb.LineString, to-from+1)
		copy(out, line[from:to+1])
		return out
	}
	out := make(orb.LineString, 0, from-to+1)
	for i := from; i >= to; i-- {
		out = append(out, line[i])
	}
	return out
}

// SliceForward returns the vertices of line travelled from the one nearest a to
// the one nearest b. On a loop the path runs past the end of line and continues
// from its start when b lies behind a; the duplicated closing vertex of a closed
// loop is emitted once. Open lines behave like SliceBetween.
func SliceForward(line orb.LineString, a, b orb.Point, loop bool) orb.LineString {
	from := NearestVertexIndex(line, a)
	to := NearestVertexIndex(line, b)
	if from < 0 || to < 0 {
		return nil
	}
	if !loop || from <= to {
		return SliceBetween(line, a, b)
	}
	start := 0
	if len(line) > 1 && line[0].Equal(line[len(line)-1]) {
		start = 1
	}
	out := make(orb.LineString, 0, len(line)-from+to+1)
	out = append(out, line[from:]...)
	if to >= start {
		out = append(out, line[start:to+1]...)
	}
	return out
}

// Run is a stretch of consecutive vertices sharing an overlap classification.
type Run struct {
	Overlapping bool
	Line        orb.LineString
}

// SplitOverlaps classifies each vertex of line as overlapping when some vertex
// of other lies within toleranceMeters, then groups consecutive vertices of the
// same class into runs. Runs shorter than two points are dropped. When other
// has fewer than two points the whole line is one non-overlapping run.
func SplitOverlaps(line, other orb.LineString, toleranceMeters float64) []Run {
	if len(line) < 2 {
		return nil
	}
	if len(other) < 2 {
		return []Run{{Overlapping: false, Line: append(orb.LineString(nil), line...)}}
	}

	classes := make([]bool, len(line))
	for i, v := range line {
		classes[i] = nearestDistance(other, v) <= toleranceMeters
	}

	var runs []Run
	start := 0
	for i := 1; i <= len(line); i++ {
		if i < len(line) && classes[i] == classes[start] {
			continue
		}
		if i-start >= 2 {
			seg := make(orb.LineString, i-start)
			copy(seg, line[start:i])
			runs = append(runs, Run{Overlapping: classes[start], Line: seg})
		}
		start = i
	}
	return runs
}

func nearestDistance(line orb.LineString, p orb.Point) float64 {
	best := math.Inf(1)
	for _, v := range line {
		if d := PointDistance(v, p); d < best {
			best = d
		}
	}
	return best
}
