// Package teles implements a client for the Teles geospatial store, along
// with a protocol-compatible in-memory server (Hub) used for testing and
// local development.
//
// Teles organizes data into named spaces. Each space holds named objects,
// and every object can carry any number of geographic associations
// (latitude/longitude pairs, each identified by a server-assigned GID).
// Spaces support bounding-box, radius and nearest-neighbor queries.
//
// The wire protocol is line-oriented text over TCP (default port 2856).
// Single-line replies acknowledge mutations, multi-line replies are framed
// between START and END markers.
package teles

import "time"

const (
	// DefaultPort is the TCP port Teles servers listen on unless told otherwise.
	DefaultPort = 2856

	// DefaultTimeout bounds every network operation on a Client.
	DefaultTimeout = 10 * time.Second

	// DefaultAttempts is how many times a Client retries a command after a
	// connection-level failure before giving up.
	DefaultAttempts = 3
)
