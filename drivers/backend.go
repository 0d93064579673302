package drivers

import "errors"

var (
	ErrorSpaceNotFound  = errors.New("space not found")
	ErrorObjectNotFound = errors.New("object not found")
	ErrorNotAssociated  = errors.New("gid not associated with object")
)

// Association is one geographic point attached to an object.
type Association struct {
	GID uint64  `json:"gid"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Store is the backend a Hub serves spaces from. Implementations must be
// safe for concurrent use.
type Store interface {
	// CreateSpace makes a space. Creating an existing space is a no-op.
	CreateSpace(name string) error
	// DeleteSpace drops a space and its contents.
	DeleteSpace(name string) error
	ListSpaces() ([]string, error)

	// AddObject creates an object in a space. Adding an existing object is
	// a no-op.
	AddObject(space, object string) error
	// DeleteObject drops an object and all its associations.
	DeleteObject(space, object string) error
	ListObjects(space string) ([]string, error)

	// Associate attaches a coordinate to an existing object and returns the
	// assigned GID.
	Associate(space, object string, lat, lon float64) (uint64, error)
	Disassociate(space, object string, gid uint64) error
	ListAssociations(space, object string) ([]Association, error)

	// QueryWithin returns objects with an association inside the box.
	QueryWithin(space string, minLat, maxLat, minLon, maxLon float64) ([]string, error)
	// QueryAround returns objects with an association within radiusKm of
	// the point. Distance is great-circle, including across the
	// antimeridian.
	QueryAround(space string, lat, lon, radiusKm float64) ([]string, error)
	// QueryNearest returns up to n object names by ascending great-circle
	// distance from the point, ties broken lexicographically.
	QueryNearest(space string, lat, lon float64, n int) ([]string, error)
}
