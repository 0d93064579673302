// Package memgeo is an in-memory Store backed by one R-Tree per space.
package memgeo

import (
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/telesdb/go-teles/drivers"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// point is one association indexed in a space's tree.
type point struct {
	object string
	assoc  drivers.Association
	rect   *rtreego.Rect
}

func (p *point) Bounds() *rtreego.Rect {
	return p.rect
}

type space struct {
	tree *rtreego.Rtree
	// object name -> gid -> indexed point. An object with no associations
	// has an empty inner map.
	objects map[string]map[uint64]*point
	points  int
}

func newSpace() *space {
	return &space{
		tree:    rtreego.NewTree(dimensions, minChildren, maxChildren),
		objects: make(map[string]map[uint64]*point),
	}
}

// Store implements drivers.Store entirely in memory.
type Store struct {
	mu      sync.RWMutex
	spaces  map[string]*space
	nextGID uint64
}

func New() *Store {
	return &Store{
		spaces:  make(map[string]*space),
		nextGID: 1,
	}
}

func (s *Store) CreateSpace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces[name]; !ok {
		s.spaces[name] = newSpace()
	}
	return nil
}

func (s *Store) DeleteSpace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces[name]; !ok {
		return drivers.ErrorSpaceNotFound
	}
	delete(s.spaces, name)
	return nil
}

func (s *Store) ListSpaces() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.spaces))
	for name := range s.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) AddObject(spaceName, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return drivers.ErrorSpaceNotFound
	}
	if _, ok := sp.objects[object]; !ok {
		sp.objects[object] = make(map[uint64]*point)
	}
	return nil
}

func (s *Store) DeleteObject(spaceName, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return drivers.ErrorSpaceNotFound
	}
	assocs, ok := sp.objects[object]
	if !ok {
		return drivers.ErrorObjectNotFound
	}
	for _, p := range assocs {
		sp.tree.Delete(p)
		sp.points--
	}
	delete(sp.objects, object)
	return nil
}

func (s *Store) ListObjects(spaceName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return nil, drivers.ErrorSpaceNotFound
	}
	names := make([]string, 0, len(sp.objects))
	for name := range sp.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Associate(spaceName, object string, lat, lon float64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return 0, drivers.ErrorSpaceNotFound
	}
	assocs, ok := sp.objects[object]
	if !ok {
		return 0, drivers.ErrorObjectNotFound
	}
	gid := s.nextGID
	s.nextGID++
	s.indexPoint(sp, assocs, object, drivers.Association{GID: gid, Lat: lat, Lon: lon})
	return gid, nil
}

// indexPoint inserts an association into the tree and bookkeeping maps.
// Caller holds the write lock.
func (s *Store) indexPoint(sp *space, assocs map[uint64]*point, object string, a drivers.Association) {
	p := &point{
		object: object,
		assoc:  a,
		rect:   rtreego.Point{a.Lat, a.Lon}.ToRect(tolerance),
	}
	sp.tree.Insert(p)
	assocs[a.GID] = p
	sp.points++
}

func (s *Store) Disassociate(spaceName, object string, gid uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return drivers.ErrorSpaceNotFound
	}
	assocs, ok := sp.objects[object]
	if !ok {
		return drivers.ErrorObjectNotFound
	}
	p, ok := assocs[gid]
	if !ok {
		return drivers.ErrorNotAssociated
	}
	sp.tree.Delete(p)
	delete(assocs, gid)
	sp.points--
	return nil
}

func (s *Store) ListAssociations(spaceName, object string) ([]drivers.Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return nil, drivers.ErrorSpaceNotFound
	}
	assocs, ok := sp.objects[object]
	if !ok {
		return nil, drivers.ErrorObjectNotFound
	}
	out := make([]drivers.Association, 0, len(assocs))
	for _, p := range assocs {
		out = append(out, p.assoc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GID < out[j].GID })
	return out, nil
}

func (s *Store) QueryWithin(spaceName string, minLat, maxLat, minLon, maxLon float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return nil, drivers.ErrorSpaceNotFound
	}

	bounds, err := boxRect(minLat, minLon, maxLat-minLat, maxLon-minLon)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, result := range sp.tree.SearchIntersect(bounds) {
		p := result.(*point)
		// The tree stores inflated rects, re-check the actual coordinate.
		if p.assoc.Lat >= minLat && p.assoc.Lat <= maxLat &&
			p.assoc.Lon >= minLon && p.assoc.Lon <= maxLon {
			seen[p.object] = true
		}
	}
	return sortedKeys(seen), nil
}

func (s *Store) QueryAround(spaceName string, lat, lon, radiusKm float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return nil, drivers.ErrorSpaceNotFound
	}

	// Prefilter with radius-covering boxes, then filter by actual distance.
	bounds, err := radiusBounds(lat, lon, radiusKm)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, b := range bounds {
		for _, result := range sp.tree.SearchIntersect(b) {
			p := result.(*point)
			if haversineDistance(lat, lon, p.assoc.Lat, p.assoc.Lon) <= radiusKm {
				seen[p.object] = true
			}
		}
	}
	return sortedKeys(seen), nil
}

// radiusBounds returns search boxes guaranteed to cover every point within
// radiusKm of the center. Longitude is widened with the tightest cosine
// across the latitude band so meridian convergence cannot drop points, and
// the box splits in two when it wraps past the antimeridian.
func radiusBounds(lat, lon, radiusKm float64) ([]*rtreego.Rect, error) {
	latDeg := (radiusKm / earthRadius) * (180 / math.Pi)
	lonDeg := 180.0
	if band := math.Abs(lat) + latDeg; band < 90 {
		if cosBand := math.Cos(band * math.Pi / 180); cosBand > 0.01 {
			lonDeg = latDeg / cosBand
		}
	}

	minLat, latSpan := lat-latDeg, 2*latDeg
	minLon, maxLon := lon-lonDeg, lon+lonDeg
	if lonDeg >= 180 {
		rect, err := boxRect(minLat, -180, latSpan, 360)
		if err != nil {
			return nil, err
		}
		return []*rtreego.Rect{rect}, nil
	}
	switch {
	case minLon < -180:
		main, err := boxRect(minLat, -180, latSpan, maxLon+180)
		if err != nil {
			return nil, err
		}
		wrapped, err := boxRect(minLat, minLon+360, latSpan, -180-minLon)
		if err != nil {
			return nil, err
		}
		return []*rtreego.Rect{main, wrapped}, nil
	case maxLon > 180:
		main, err := boxRect(minLat, minLon, latSpan, 180-minLon)
		if err != nil {
			return nil, err
		}
		wrapped, err := boxRect(minLat, -180, latSpan, maxLon-180)
		if err != nil {
			return nil, err
		}
		return []*rtreego.Rect{main, wrapped}, nil
	}
	rect, err := boxRect(minLat, minLon, latSpan, 2*lonDeg)
	if err != nil {
		return nil, err
	}
	return []*rtreego.Rect{rect}, nil
}

func (s *Store) QueryNearest(spaceName string, lat, lon float64, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[spaceName]
	if !ok {
		return nil, drivers.ErrorSpaceNotFound
	}
	if sp.points == 0 || n < 1 {
		return []string{}, nil
	}

	// The tree ranks by planar degree distance, which diverges from
	// great-circle kilometers wherever meridians converge, so the tree
	// pass only seeds a provisional answer. Rank the seed by haversine,
	// then re-search everything inside the provisional n-th distance:
	// that box search is distance-true and also catches boundary ties.
	var candidates []rtreego.Spatial
	fetched := 0
	for k := n; ; k *= 2 {
		if k > sp.points {
			k = sp.points
		}
		fetched = k
		candidates = sp.tree.NearestNeighbors(k, rtreego.Point{lat, lon})
		if distinctObjects(candidates) >= n || k == sp.points {
			break
		}
	}

	order := rankByDistance(candidates, lat, lon)
	if fetched < sp.points && len(order) >= n {
		bounds, err := radiusBounds(lat, lon, order[n-1].dist)
		if err != nil {
			return nil, err
		}
		var within []rtreego.Spatial
		for _, b := range bounds {
			within = append(within, sp.tree.SearchIntersect(b)...)
		}
		order = rankByDistance(within, lat, lon)
	}
	if len(order) > n {
		order = order[:n]
	}
	names := make([]string, len(order))
	for i, r := range order {
		names[i] = r.name
	}
	return names, nil
}

type ranked struct {
	name string
	dist float64
}

// rankByDistance reduces candidate points to one entry per object, ordered
// by ascending haversine distance with name as tie-break.
func rankByDistance(candidates []rtreego.Spatial, lat, lon float64) []ranked {
	best := make(map[string]float64)
	for _, result := range candidates {
		p := result.(*point)
		d := haversineDistance(lat, lon, p.assoc.Lat, p.assoc.Lon)
		if cur, ok := best[p.object]; !ok || d < cur {
			best[p.object] = d
		}
	}
	order := make([]ranked, 0, len(best))
	for name, d := range best {
		order = append(order, ranked{name, d})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].dist != order[j].dist {
			return order[i].dist < order[j].dist
		}
		return order[i].name < order[j].name
	})
	return order
}

func distinctObjects(items []rtreego.Spatial) int {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.(*point).object] = true
	}
	return len(seen)
}

// boxRect builds a search rectangle, inflating degenerate edges so rtreego
// accepts zero-area boxes.
func boxRect(lat, lon, latSpan, lonSpan float64) (*rtreego.Rect, error) {
	const minSpan = 1e-9
	if latSpan < minSpan {
		latSpan = minSpan
	}
	if lonSpan < minSpan {
		lonSpan = minSpan
	}
	return rtreego.NewRect(rtreego.Point{lat, lon}, []float64{latSpan, lonSpan})
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// haversineDistance returns the great-circle distance between two points in
// kilometers.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
