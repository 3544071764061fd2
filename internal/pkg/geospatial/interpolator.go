package geospatial

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
)

// ErrDegenerateLine is returned for polylines with fewer than two points.
var ErrDegenerateLine = errors.New("polyline needs at least two points")

// Mode selects how distances beyond the ends of a polyline are treated.
type Mode int

const (
	// Loop wraps distances modulo the total length.
	Loop Mode = iota
	// Open clamps distances to [0, length].
	Open
)

func (m Mode) String() string {
	if m == Open {
		return "open"
	}
	return "loop"
}

// Interpolator answers point and bearing queries at an arc-length distance
// along a polyline. It is immutable once built.
type Interpolator struct {
	coords orb.LineString
	cumul  []float64
	total  float64
	mode   Mode
}

// NewInterpolator precomputes cumulative distances along line.
func NewInterpolator(line orb.LineString, mode Mode) (*Interpolator, error) {
	if len(line) < 2 {
		return nil, ErrDegenerateLine
	}
	coords := make(orb.LineString, len(line))
	copy(coords, line)

	cumul := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cumul[i] = cumul[i-1] + PointDistance(coords[i-1], coords[i])
	}
	return &Interpolator{
		coords: coords,
		cumul:  cumul,
		total:  cumul[len(cumul)-1],
		mode:   mode,
	}, nil
}

// Length returns the total length in meters.
func (ip *Interpolator) Length() float64 { return ip.total }

// Mode returns the interpolation mode.
func (ip *Interpolator) Mode() Mode { return ip.mode }

// Coords returns the underlying polyline. Callers must not modify it.
func (ip *Interpolator) Coords() orb.LineString { return ip.coords }

// Normalize maps d into [0, Length()] according to the mode.
func (ip *Interpolator) Normalize(d float64) float64 {
	if ip.total <= 0 {
		return 0
	}
	if ip.mode == Open {
		return math.Max(0, math.Min(d, ip.total))
	}
	d = math.Mod(d, ip.total)
	if d < 0 {
		d += ip.total
	}
	return d
}

// bracket returns i such that cumul[i-1] <= d <= cumul[i].
func (ip *Interpolator) bracket(d float64) int {
	for i := 1; i < len(ip.cumul); i++ {
		if d <= ip.cumul[i] {
			return i
		}
	}
	return len(ip.cumul) - 1
}

// PointAt returns the point d meters along the polyline.
func (ip *Interpolator) PointAt(d float64) orb.Point {
	d = ip.Normalize(d)
	if d <= 0 {
		return ip.coords[0]
	}
	i := ip.bracket(d)
	if d == ip.cumul[i] {
		return ip.coords[i]
	}
	segLen := ip.cumul[i] - ip.cumul[i-1]
	if segLen <= 0 {
		return ip.coords[i]
	}
	t := (d - ip.cumul[i-1]) / segLen
	a, b := ip.coords[i-1], ip.coords[i]
	return orb.Point{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
	}
}

// BearingAt returns the heading of the segment containing distance d.
func (ip *Interpolator) BearingAt(d float64) float64 {
	d = ip.Normalize(d)
	i := ip.bracket(d)
	// skip zero-length segments so duplicated vertices don't report north
	for j := i; j < len(ip.coords); j++ {
		if ip.cumul[j] > ip.cumul[j-1] {
			return Bearing(ip.coords[j-1], ip.coords[j])
		}
	}
	return Bearing(ip.coords[i-1], ip.coords[i])
}

// DistanceAlong returns the cumulative distance of the vertex nearest p.
func (ip *Interpolator) DistanceAlong(p orb.Point) float64 {
	return ip.cumul[NearestVertexIndex(ip.coords, p)]
}

// Fingerprint identifies a polyline by its endpoints and vertex count.
func Fingerprint(line orb.LineString, mode Mode) string {
	if len(line) == 0 {
		return "empty"
	}
	first, last := line[0], line[len(line)-1]
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f|%d|%s",
		first[0], first[1], last[0], last[1], len(line), mode)
}

// InterpolatorCache shares one Interpolator per distinct polyline.
type InterpolatorCache struct {
	mu    sync.Mutex
	cache gcache.Cache
}

// NewInterpolatorCache creates an LRU cache holding up to size interpolators.
func NewInterpolatorCache(size int) *InterpolatorCache {
	if size <= 0 {
		size = 256
	}
	return &InterpolatorCache{cache: gcache.New(size).LRU().Build()}
}

// Get returns the cached interpolator for line, building it on first use.
func (c *InterpolatorCache) Get(line orb.LineString, mode Mode) (*Interpolator, error) {
	key := Fingerprint(line, mode)
	if v, err := c.cache.Get(key); err == nil {
		return v.(*Interpolator), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, err := c.cache.Get(key); err == nil {
		return v.(*Interpolator), nil
	}
	ip, err := NewInterpolator(line, mode)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, ip); err != nil {
		return nil, fmt.Errorf("cache interpolator: %w", err)
	}
	return ip, nil
}

// Invalidate drops the cached interpolator for line, e.g. after a re-fetch.
func (c *InterpolatorCache) Invalidate(line orb.LineString, mode Mode) {
	c.cache.Remove(Fingerprint(line, mode))
}
