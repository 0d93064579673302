package teles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	cases := []struct {
		line string
		want request
	}{
		{"create space people", request{Cmd: CmdCreateSpace, Space: "people"}},
		{"delete space people", request{Cmd: CmdDeleteSpace, Space: "people"}},
		{"list spaces", request{Cmd: CmdListSpaces}},
		{"in people add object jane", request{Cmd: CmdAddObject, Space: "people", Object: "jane"}},
		{"in people delete object jane", request{Cmd: CmdDeleteObject, Space: "people", Object: "jane"}},
		{
			"in people associate point 40.123000 -120.120000 with jane",
			request{Cmd: CmdAssociate, Space: "people", Object: "jane", Lat: 40.123, Lon: -120.12},
		},
		{
			"in people disassociate 42 with jane",
			request{Cmd: CmdDisassociate, Space: "people", Object: "jane", GID: 42},
		},
		{"in people list objects", request{Cmd: CmdListObjects, Space: "people"}},
		{
			"in people list associations with jane",
			request{Cmd: CmdListAssociations, Space: "people", Object: "jane"},
		},
		{
			"in people query within -10.000000 10.000000 -20.000000 20.000000",
			request{Cmd: CmdQueryWithin, Space: "people", MinLat: -10, MaxLat: 10, MinLon: -20, MaxLon: 20},
		},
		{
			"in people query around 40.000000 -120.000000 for 25.000000mi",
			request{Cmd: CmdQueryAround, Space: "people", Lat: 40, Lon: -120, Dist: 25, Unit: "mi"},
		},
		{
			"in people query nearest 5 to 40.000000 -120.000000",
			request{Cmd: CmdQueryNearest, Space: "people", N: 5, Lat: 40, Lon: -120},
		},
	}
	for _, tc := range cases {
		got, err := parseRequest(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, *got, tc.line)
	}
}

func TestParseRequestRejects(t *testing.T) {
	bad := []string{
		"",
		"create",
		"create space",
		"create space a b",
		"list",
		"in people",
		"in people do things",
		"in people associate point x y with jane",
		"in people disassociate notanumber with jane",
		"in people query",
		"in people query within 1 2 3",
		"in people query around 1 2 for 3lightyears",
		"in people query nearest five to 1 2",
		"made up nonsense",
	}
	for _, line := range bad {
		_, err := parseRequest(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestAssociationRoundTrip(t *testing.T) {
	a := Association{GID: 17, Lat: 40.123, Lon: -120.12}
	line := formatAssociation(a)
	assert.Equal(t, "gid=17 lat=40.123000 lng=-120.120000", line)

	got, err := parseAssociation(line)
	require.NoError(t, err)
	assert.Equal(t, a.GID, got.GID)
	assert.InDelta(t, a.Lat, got.Lat, 1e-6)
	assert.InDelta(t, a.Lon, got.Lon, 1e-6)

	_, err = parseAssociation("not an association")
	assert.Error(t, err)
}

func TestParseDistance(t *testing.T) {
	dist, unit, err := parseDistance("25.5km")
	require.NoError(t, err)
	assert.Equal(t, 25.5, dist)
	assert.Equal(t, "km", unit)

	dist, unit, err = parseDistance("100m")
	require.NoError(t, err)
	assert.Equal(t, 100.0, dist)
	assert.Equal(t, "m", unit)

	_, _, err = parseDistance("25")
	assert.Error(t, err)

	_, _, err = parseDistance("25parsec")
	assert.Error(t, err)

	_, _, err = parseDistance("km")
	assert.Error(t, err)
}
