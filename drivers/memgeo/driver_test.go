package memgeo

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telesdb/go-teles/drivers"
)

func TestSpaceLifecycle(t *testing.T) {
	s := New()

	require.NoError(t, s.CreateSpace("people"))
	// Creating again is a no-op
	require.NoError(t, s.CreateSpace("people"))
	require.NoError(t, s.CreateSpace("cities"))

	spaces, err := s.ListSpaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"cities", "people"}, spaces)

	require.NoError(t, s.DeleteSpace("cities"))
	require.ErrorIs(t, s.DeleteSpace("cities"), drivers.ErrorSpaceNotFound)

	_, err = s.ListObjects("cities")
	require.ErrorIs(t, err, drivers.ErrorSpaceNotFound)
}

func TestObjectLifecycle(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("people"))

	require.ErrorIs(t, s.AddObject("ghosts", "casper"), drivers.ErrorSpaceNotFound)

	require.NoError(t, s.AddObject("people", "jane"))
	require.NoError(t, s.AddObject("people", "jane"))
	require.NoError(t, s.AddObject("people", "adam"))

	names, err := s.ListObjects("people")
	require.NoError(t, err)
	assert.Equal(t, []string{"adam", "jane"}, names)

	require.NoError(t, s.DeleteObject("people", "adam"))
	require.ErrorIs(t, s.DeleteObject("people", "adam"), drivers.ErrorObjectNotFound)
}

func TestAssociations(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("people"))
	require.NoError(t, s.AddObject("people", "jane"))

	_, err := s.Associate("people", "nobody", 1, 2)
	require.ErrorIs(t, err, drivers.ErrorObjectNotFound)

	gid1, err := s.Associate("people", "jane", 40.123, -120.12)
	require.NoError(t, err)
	gid2, err := s.Associate("people", "jane", 41.0, -121.0)
	require.NoError(t, err)
	assert.Greater(t, gid2, gid1)

	assocs, err := s.ListAssociations("people", "jane")
	require.NoError(t, err)
	require.Len(t, assocs, 2)
	assert.Equal(t, gid1, assocs[0].GID)
	assert.Equal(t, 40.123, assocs[0].Lat)

	require.ErrorIs(t, s.Disassociate("people", "jane", 9999), drivers.ErrorNotAssociated)
	require.NoError(t, s.Disassociate("people", "jane", gid1))

	assocs, err = s.ListAssociations("people", "jane")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, gid2, assocs[0].GID)

	// Deleting the object drops the remaining association from the index
	require.NoError(t, s.DeleteObject("people", "jane"))
	names, err := s.QueryNearest("people", 41.0, -121.0, 5)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestQueryNearestOrdering(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("grid"))

	add := func(name string, lat, lon float64) {
		require.NoError(t, s.AddObject("grid", name))
		_, err := s.Associate("grid", name, lat, lon)
		require.NoError(t, err)
	}
	add("close", 0, 0.5)
	// Equidistant from the origin, must come back in name order
	add("alpha", 0, 1)
	add("bravo", 0, -1)
	add("far", 0, 5)

	names, err := s.QueryNearest("grid", 0, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "alpha", "bravo", "far"}, names)

	names, err = s.QueryNearest("grid", 0, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "alpha"}, names)

	// More requested than stored returns everything
	names, err = s.QueryNearest("grid", 0, 0, 50)
	require.NoError(t, err)
	assert.Len(t, names, 4)
}

func TestQueryNearestDedup(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("routes"))
	require.NoError(t, s.AddObject("routes", "bus"))
	require.NoError(t, s.AddObject("routes", "tram"))

	// bus has several stops, all nearer than the tram
	for i := 0; i < 5; i++ {
		_, err := s.Associate("routes", "bus", 0, float64(i)*0.01)
		require.NoError(t, err)
	}
	_, err := s.Associate("routes", "tram", 1, 1)
	require.NoError(t, err)

	names, err := s.QueryNearest("routes", 0, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bus", "tram"}, names)
}

func TestQueryNearestHighLatitude(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("polar"))

	add := func(name string, lat, lon float64) {
		require.NoError(t, s.AddObject("polar", name))
		_, err := s.Associate("polar", name, lat, lon)
		require.NoError(t, err)
	}
	// At 80N a couple of degrees of longitude is under 40 km while 1.5
	// degrees of latitude is nearly 170 km, so a planar degree ranking
	// gets these backwards.
	add("station", 80, 2)   // ~39 km from the query point
	add("outpost", 78.5, 0) // ~167 km
	add("caravan", 78.4, 0) // ~178 km

	names, err := s.QueryNearest("polar", 80, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"station"}, names)

	names, err = s.QueryNearest("polar", 80, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"station", "outpost"}, names)
}

func TestQueryAcrossAntimeridian(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("seam"))

	add := func(name string, lat, lon float64) {
		require.NoError(t, s.AddObject("seam", name))
		_, err := s.Associate("seam", name, lat, lon)
		require.NoError(t, err)
	}
	add("east", 0, 179.9)  // ~6 km from the query point
	add("west", 0, -179.9) // ~17 km, across the seam
	add("inland", 0, 170)

	names, err := s.QueryAround("seam", 0, 179.95, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "west"}, names)

	names, err = s.QueryNearest("seam", 0, 179.95, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "west"}, names)
}

func TestQueryNearestEmptySpace(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("void"))

	names, err := s.QueryNearest("void", 0, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestQueryWithin(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("cities"))

	add := func(name string, lat, lon float64) {
		require.NoError(t, s.AddObject("cities", name))
		_, err := s.Associate("cities", name, lat, lon)
		require.NoError(t, err)
	}
	add("newyork", 40.7128, -74.0060)
	add("london", 51.5074, -0.1278)
	add("paris", 48.8566, 2.3522)
	add("tokyo", 35.6762, 139.6503)

	// Europe box catches London and Paris
	names, err := s.QueryWithin("cities", 45.0, 55.0, -5.0, 10.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"london", "paris"}, names)

	// Degenerate box exactly on a point
	names, err = s.QueryWithin("cities", 40.7128, 40.7128, -74.0060, -74.0060)
	require.NoError(t, err)
	assert.Equal(t, []string{"newyork"}, names)

	names, err = s.QueryWithin("cities", -10, -5, -10, -5)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestQueryAround(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("spots"))

	add := func(name string, lat, lon float64) {
		require.NoError(t, s.AddObject("spots", name))
		_, err := s.Associate("spots", name, lat, lon)
		require.NoError(t, err)
	}
	center := 40.0
	add("center", center, -74.0)
	add("near", center+0.1, -74.0+0.1) // roughly 14 km out
	add("far", center+1.0, -73.0)      // roughly 140 km out

	names, err := s.QueryAround("spots", center, -74.0, 50.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"center", "near"}, names)

	names, err = s.QueryAround("spots", center, -74.0, 500.0)
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("people"))
	require.NoError(t, s.AddObject("people", "jane"))
	require.NoError(t, s.AddObject("people", "bare")) // no associations
	gid, err := s.Associate("people", "jane", 40.123, -120.12)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "teles.json")
	require.NoError(t, s.SaveSnapshot(path))

	restored := New()
	require.NoError(t, restored.LoadSnapshot(path))

	names, err := restored.ListObjects("people")
	require.NoError(t, err)
	assert.Equal(t, []string{"bare", "jane"}, names)

	assocs, err := restored.ListAssociations("people", "jane")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, gid, assocs[0].GID)
	assert.Equal(t, 40.123, assocs[0].Lat)
	assert.Equal(t, -120.12, assocs[0].Lon)

	// The restored index answers spatial queries
	found, err := restored.QueryNearest("people", 40.123, -120.12, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane"}, found)

	// New GIDs continue past the restored ones
	require.NoError(t, restored.AddObject("people", "john"))
	next, err := restored.Associate("people", "john", 1, 1)
	require.NoError(t, err)
	assert.Greater(t, next, gid)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	s := New()
	err := s.LoadSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestManyPoints(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateSpace("grid"))

	// 20x20 degree grid
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			name := fmt.Sprintf("p%d-%d", i, j)
			require.NoError(t, s.AddObject("grid", name))
			_, err := s.Associate("grid", name, float64(i), float64(j))
			require.NoError(t, err)
		}
	}

	names, err := s.QueryNearest("grid", 4.5, 4.5, 4)
	require.NoError(t, err)
	require.Len(t, names, 4)
	assert.ElementsMatch(t, []string{"p4-4", "p4-5", "p5-4", "p5-5"}, names)

	names, err = s.QueryWithin("grid", 0, 2, 0, 2)
	require.NoError(t, err)
	assert.Len(t, names, 9)
}
