package teles

import (
	"fmt"
	"strconv"
	"strings"
)

// Single-line replies.
const (
	respDone           = "Done"
	respSpaceNotFound  = "Space does not exist"
	respObjectNotFound = "Object does not exist"
	respNotAssociated  = "GID not associated"
	respInvalidCommand = "Invalid command"
	respInternalError  = "Internal error"
)

// Block framing markers.
const (
	blockStart = "START"
	blockEnd   = "END"
)

// Command names, used as dispatch keys on the server side.
const (
	CmdCreateSpace      = "create space"
	CmdDeleteSpace      = "delete space"
	CmdListSpaces       = "list spaces"
	CmdAddObject        = "add object"
	CmdDeleteObject     = "delete object"
	CmdAssociate        = "associate point"
	CmdDisassociate     = "disassociate"
	CmdListObjects      = "list objects"
	CmdListAssociations = "list associations"
	CmdQueryWithin      = "query within"
	CmdQueryAround      = "query around"
	CmdQueryNearest     = "query nearest"
)

// distanceUnits maps the units accepted by "query around" to kilometers.
var distanceUnits = map[string]float64{
	"m":  0.001,
	"km": 1,
	"mi": 1.609344,
	"y":  0.0009144,
	"ft": 0.0003048,
}

// Association is one geographic point attached to an object, identified by
// a server-assigned GID.
type Association struct {
	GID uint64
	Lat float64
	Lon float64
}

func formatAssociation(a Association) string {
	return fmt.Sprintf("gid=%d lat=%f lng=%f", a.GID, a.Lat, a.Lon)
}

func parseAssociation(line string) (Association, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 ||
		!strings.HasPrefix(fields[0], "gid=") ||
		!strings.HasPrefix(fields[1], "lat=") ||
		!strings.HasPrefix(fields[2], "lng=") {
		return Association{}, &RemoteError{Response: line}
	}
	gid, err := strconv.ParseUint(fields[0][4:], 10, 64)
	if err != nil {
		return Association{}, &RemoteError{Response: line}
	}
	lat, err := strconv.ParseFloat(fields[1][4:], 64)
	if err != nil {
		return Association{}, &RemoteError{Response: line}
	}
	lon, err := strconv.ParseFloat(fields[2][4:], 64)
	if err != nil {
		return Association{}, &RemoteError{Response: line}
	}
	return Association{GID: gid, Lat: lat, Lon: lon}, nil
}

// request is a parsed protocol command. Only the fields relevant to Cmd are
// populated.
type request struct {
	Cmd    string
	Space  string
	Object string
	GID    uint64

	Lat, Lon                       float64
	MinLat, MaxLat, MinLon, MaxLon float64
	Dist                           float64
	Unit                           string
	N                              int
}

// parseRequest parses one command line into a request. The grammar follows
// the Teles text protocol:
//
//	create space NAME
//	delete space NAME
//	list spaces
//	in SPACE add object NAME
//	in SPACE delete object NAME
//	in SPACE associate point LAT LNG with NAME
//	in SPACE disassociate GID with NAME
//	in SPACE list objects
//	in SPACE list associations with NAME
//	in SPACE query within MINLAT MAXLAT MINLNG MAXLNG
//	in SPACE query around LAT LNG for DIST+UNIT
//	in SPACE query nearest N to LAT LNG
func parseRequest(line string) (*request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "create":
		if len(fields) == 3 && fields[1] == "space" {
			return &request{Cmd: CmdCreateSpace, Space: fields[2]}, nil
		}
	case "delete":
		if len(fields) == 3 && fields[1] == "space" {
			return &request{Cmd: CmdDeleteSpace, Space: fields[2]}, nil
		}
	case "list":
		if len(fields) == 2 && fields[1] == "spaces" {
			return &request{Cmd: CmdListSpaces}, nil
		}
	case "in":
		if len(fields) < 3 {
			break
		}
		req, err := parseSpaceRequest(fields[2:])
		if err != nil {
			return nil, err
		}
		if req != nil {
			req.Space = fields[1]
			return req, nil
		}
	}
	return nil, fmt.Errorf("unrecognized command %q", line)
}

func parseSpaceRequest(fields []string) (*request, error) {
	switch fields[0] {
	case "add":
		if len(fields) == 3 && fields[1] == "object" {
			return &request{Cmd: CmdAddObject, Object: fields[2]}, nil
		}
	case "delete":
		if len(fields) == 3 && fields[1] == "object" {
			return &request{Cmd: CmdDeleteObject, Object: fields[2]}, nil
		}
	case "associate":
		// associate point LAT LNG with NAME
		if len(fields) == 6 && fields[1] == "point" && fields[4] == "with" {
			lat, err1 := strconv.ParseFloat(fields[2], 64)
			lon, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("bad coordinates in associate")
			}
			return &request{Cmd: CmdAssociate, Object: fields[5], Lat: lat, Lon: lon}, nil
		}
	case "disassociate":
		// disassociate GID with NAME
		if len(fields) == 4 && fields[2] == "with" {
			gid, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad gid in disassociate")
			}
			return &request{Cmd: CmdDisassociate, Object: fields[3], GID: gid}, nil
		}
	case "list":
		if len(fields) == 2 && fields[1] == "objects" {
			return &request{Cmd: CmdListObjects}, nil
		}
		// list associations with NAME
		if len(fields) == 4 && fields[1] == "associations" && fields[2] == "with" {
			return &request{Cmd: CmdListAssociations, Object: fields[3]}, nil
		}
	case "query":
		return parseQueryRequest(fields)
	}
	return nil, nil
}

func parseQueryRequest(fields []string) (*request, error) {
	if len(fields) < 2 {
		return nil, nil
	}
	switch fields[1] {
	case "within":
		// query within MINLAT MAXLAT MINLNG MAXLNG
		if len(fields) != 6 {
			return nil, nil
		}
		vals := make([]float64, 4)
		for i, f := range fields[2:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("bad bounds in query within")
			}
			vals[i] = v
		}
		return &request{
			Cmd:    CmdQueryWithin,
			MinLat: vals[0], MaxLat: vals[1],
			MinLon: vals[2], MaxLon: vals[3],
		}, nil
	case "around":
		// query around LAT LNG for DIST+UNIT
		if len(fields) != 6 || fields[4] != "for" {
			return nil, nil
		}
		lat, err1 := strconv.ParseFloat(fields[2], 64)
		lon, err2 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad coordinates in query around")
		}
		dist, unit, err := parseDistance(fields[5])
		if err != nil {
			return nil, err
		}
		return &request{Cmd: CmdQueryAround, Lat: lat, Lon: lon, Dist: dist, Unit: unit}, nil
	case "nearest":
		// query nearest N to LAT LNG
		if len(fields) != 6 || fields[3] != "to" {
			return nil, nil
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bad count in query nearest")
		}
		lat, err1 := strconv.ParseFloat(fields[4], 64)
		lon, err2 := strconv.ParseFloat(fields[5], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad coordinates in query nearest")
		}
		return &request{Cmd: CmdQueryNearest, N: n, Lat: lat, Lon: lon}, nil
	}
	return nil, nil
}

// parseDistance splits a "12.5km" style token into value and unit.
func parseDistance(token string) (float64, string, error) {
	i := len(token)
	for i > 0 {
		c := token[i-1]
		if c >= '0' && c <= '9' || c == '.' {
			break
		}
		i--
	}
	unit := token[i:]
	if _, ok := distanceUnits[unit]; !ok {
		return 0, "", fmt.Errorf("unknown distance unit %q", unit)
	}
	dist, err := strconv.ParseFloat(token[:i], 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad distance %q", token)
	}
	return dist, unit, nil
}
