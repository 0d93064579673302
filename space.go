package teles

import (
	"context"
	"fmt"
)

// Space is a handle on one named space. Handles are cheap, carry no state
// beyond the name, and share the parent Client's connection.
type Space struct {
	client *Client
	name   string
	prefix string
}

// Name returns the space name this handle points at.
func (s *Space) Name() string {
	return s.name
}

func (s *Space) exchange(ctx context.Context, cmd string) (string, error) {
	if err := validName("space", s.name); err != nil {
		return "", err
	}
	return s.client.exchange(ctx, s.prefix+cmd)
}

func (s *Space) exchangeBlock(ctx context.Context, cmd string) ([]string, error) {
	if err := validName("space", s.name); err != nil {
		return nil, err
	}
	return s.client.exchangeBlock(ctx, s.prefix+cmd)
}

// Add creates an object in the space. Adding an object that already exists
// is a no-op.
func (s *Space) Add(ctx context.Context, name string) error {
	if err := validName("object", name); err != nil {
		return err
	}
	resp, err := s.exchange(ctx, "add object "+name)
	if err != nil {
		return err
	}
	switch resp {
	case respDone:
		return nil
	case respSpaceNotFound:
		return ErrSpaceNotFound
	}
	return &RemoteError{Response: resp}
}

// Delete removes an object and all its associations. It reports whether the
// object existed.
func (s *Space) Delete(ctx context.Context, name string) (bool, error) {
	if err := validName("object", name); err != nil {
		return false, err
	}
	resp, err := s.exchange(ctx, "delete object "+name)
	if err != nil {
		return false, err
	}
	switch resp {
	case respDone:
		return true, nil
	case respObjectNotFound:
		return false, nil
	case respSpaceNotFound:
		return false, ErrSpaceNotFound
	}
	return false, &RemoteError{Response: resp}
}

// Associate attaches a coordinate to an existing object. The object must
// have been added first; Associate never auto-creates and returns
// ErrObjectNotFound instead. An object may carry any number of
// associations, each identified by a server-assigned GID discoverable via
// ListAssociations.
func (s *Space) Associate(ctx context.Context, name string, lat, lon float64) error {
	if err := validName("object", name); err != nil {
		return err
	}
	if err := validCoords(lat, lon); err != nil {
		return err
	}
	resp, err := s.exchange(ctx, fmt.Sprintf("associate point %f %f with %s", lat, lon, name))
	if err != nil {
		return err
	}
	switch resp {
	case respDone:
		return nil
	case respObjectNotFound:
		return ErrObjectNotFound
	case respSpaceNotFound:
		return ErrSpaceNotFound
	}
	return &RemoteError{Response: resp}
}

// Disassociate detaches the association with the given GID from an object.
func (s *Space) Disassociate(ctx context.Context, name string, gid uint64) error {
	if err := validName("object", name); err != nil {
		return err
	}
	resp, err := s.exchange(ctx, fmt.Sprintf("disassociate %d with %s", gid, name))
	if err != nil {
		return err
	}
	switch resp {
	case respDone:
		return nil
	case respObjectNotFound:
		return ErrObjectNotFound
	case respNotAssociated:
		return ErrNotAssociated
	case respSpaceNotFound:
		return ErrSpaceNotFound
	}
	return &RemoteError{Response: resp}
}

// ListObjects returns the names of all objects in the space. An empty space
// yields an empty slice.
func (s *Space) ListObjects(ctx context.Context) ([]string, error) {
	return s.exchangeBlock(ctx, "list objects")
}

// ListAssociations returns every coordinate attached to an object.
func (s *Space) ListAssociations(ctx context.Context, name string) ([]Association, error) {
	if err := validName("object", name); err != nil {
		return nil, err
	}
	lines, err := s.exchangeBlock(ctx, "list associations with "+name)
	if err != nil {
		return nil, err
	}
	assocs := make([]Association, 0, len(lines))
	for _, line := range lines {
		a, err := parseAssociation(line)
		if err != nil {
			return nil, err
		}
		assocs = append(assocs, a)
	}
	return assocs, nil
}

// QueryWithin returns the objects with at least one association inside the
// bounding box.
func (s *Space) QueryWithin(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]string, error) {
	if err := validCoords(minLat, minLon); err != nil {
		return nil, err
	}
	if err := validCoords(maxLat, maxLon); err != nil {
		return nil, err
	}
	if minLat > maxLat || minLon > maxLon {
		return nil, validationErrorf("minimum lat/lng must not exceed maximum lat/lng")
	}
	return s.exchangeBlock(ctx, fmt.Sprintf("query within %f %f %f %f", minLat, maxLat, minLon, maxLon))
}

// QueryAround returns the objects with at least one association within the
// given distance of a point. Accepted units are m, km, mi, y and ft.
func (s *Space) QueryAround(ctx context.Context, lat, lon, dist float64, unit string) ([]string, error) {
	if err := validCoords(lat, lon); err != nil {
		return nil, err
	}
	if dist <= 0 {
		return nil, validationErrorf("distance must be positive, got %f", dist)
	}
	if _, ok := distanceUnits[unit]; !ok {
		return nil, validationErrorf("unknown distance unit %q", unit)
	}
	return s.exchangeBlock(ctx, fmt.Sprintf("query around %f %f for %f%s", lat, lon, dist, unit))
}

// QueryNearest returns up to n object names ordered by ascending distance
// from the given point, ties broken lexicographically by name.
func (s *Space) QueryNearest(ctx context.Context, lat, lon float64, n int) ([]string, error) {
	if err := validCoords(lat, lon); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, validationErrorf("nearest count must be at least 1, got %d", n)
	}
	return s.exchangeBlock(ctx, fmt.Sprintf("query nearest %d to %f %f", n, lat, lon))
}

func validCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return validationErrorf("latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return validationErrorf("longitude %f out of range [-180, 180]", lon)
	}
	return nil
}
