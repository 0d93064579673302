package teles

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/telesdb/go-teles/drivers"
)

type commandHandlerFn func(*Hub, *request) reply

var handlers = map[string]commandHandlerFn{
	CmdCreateSpace:      cmdCreateSpace,
	CmdDeleteSpace:      cmdDeleteSpace,
	CmdListSpaces:       cmdListSpaces,
	CmdAddObject:        cmdAddObject,
	CmdDeleteObject:     cmdDeleteObject,
	CmdAssociate:        cmdAssociate,
	CmdDisassociate:     cmdDisassociate,
	CmdListObjects:      cmdListObjects,
	CmdListAssociations: cmdListAssociations,
	CmdQueryWithin:      cmdQueryWithin,
	CmdQueryAround:      cmdQueryAround,
	CmdQueryNearest:     cmdQueryNearest,
}

// reply is what a handler sends back: either a single line or a
// START/END-framed block.
type reply struct {
	line    string
	block   []string
	isBlock bool
}

func lineReply(line string) reply {
	return reply{line: line}
}

func blockReply(lines []string) reply {
	return reply{block: lines, isBlock: true}
}

func (r reply) encode() []byte {
	if !r.isBlock {
		return []byte(r.line + "\n")
	}
	var sb strings.Builder
	sb.WriteString(blockStart + "\n")
	for _, line := range r.block {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(blockEnd + "\n")
	return []byte(sb.String())
}

// dispatch parses one command line and runs its handler.
func (hub *Hub) dispatch(line string) reply {
	req, err := parseRequest(line)
	if err != nil {
		hub.logger.Debug("rejected command", zap.String("line", line), zap.Error(err))
		metricCommandErrors.WithLabelValues("invalid").Inc()
		return lineReply(respInvalidCommand)
	}
	metricCommands.WithLabelValues(req.Cmd).Inc()

	rep := handlers[req.Cmd](hub, req)
	if !rep.isBlock && rep.line != respDone {
		metricCommandErrors.WithLabelValues(req.Cmd).Inc()
	}
	hub.logger.Debug("handled command",
		zap.String("command", req.Cmd),
		zap.String("space", req.Space))
	return rep
}

// storeReply maps a store error onto the protocol's failure lines.
func (hub *Hub) storeReply(err error) reply {
	switch {
	case errors.Is(err, drivers.ErrorSpaceNotFound):
		return lineReply(respSpaceNotFound)
	case errors.Is(err, drivers.ErrorObjectNotFound):
		return lineReply(respObjectNotFound)
	case errors.Is(err, drivers.ErrorNotAssociated):
		return lineReply(respNotAssociated)
	}
	hub.logger.Error("store failure", zap.Error(err))
	return lineReply(respInternalError)
}

func cmdCreateSpace(hub *Hub, req *request) reply {
	if err := hub.store.CreateSpace(req.Space); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdDeleteSpace(hub *Hub, req *request) reply {
	if err := hub.store.DeleteSpace(req.Space); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdListSpaces(hub *Hub, req *request) reply {
	spaces, err := hub.store.ListSpaces()
	if err != nil {
		return hub.storeReply(err)
	}
	return blockReply(spaces)
}

func cmdAddObject(hub *Hub, req *request) reply {
	if err := hub.store.AddObject(req.Space, req.Object); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdDeleteObject(hub *Hub, req *request) reply {
	if err := hub.store.DeleteObject(req.Space, req.Object); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdAssociate(hub *Hub, req *request) reply {
	if _, err := hub.store.Associate(req.Space, req.Object, req.Lat, req.Lon); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdDisassociate(hub *Hub, req *request) reply {
	if err := hub.store.Disassociate(req.Space, req.Object, req.GID); err != nil {
		return hub.storeReply(err)
	}
	return lineReply(respDone)
}

func cmdListObjects(hub *Hub, req *request) reply {
	objects, err := hub.store.ListObjects(req.Space)
	if err != nil {
		return hub.storeReply(err)
	}
	return blockReply(objects)
}

func cmdListAssociations(hub *Hub, req *request) reply {
	assocs, err := hub.store.ListAssociations(req.Space, req.Object)
	if err != nil {
		return hub.storeReply(err)
	}
	lines := make([]string, len(assocs))
	for i, a := range assocs {
		lines[i] = formatAssociation(Association{GID: a.GID, Lat: a.Lat, Lon: a.Lon})
	}
	return blockReply(lines)
}

func cmdQueryWithin(hub *Hub, req *request) reply {
	if req.MinLat > req.MaxLat || req.MinLon > req.MaxLon {
		return lineReply(respInvalidCommand)
	}
	objects, err := hub.store.QueryWithin(req.Space, req.MinLat, req.MaxLat, req.MinLon, req.MaxLon)
	if err != nil {
		return hub.storeReply(err)
	}
	return blockReply(objects)
}

func cmdQueryAround(hub *Hub, req *request) reply {
	if req.Dist <= 0 {
		return lineReply(respInvalidCommand)
	}
	radiusKm := req.Dist * distanceUnits[req.Unit]
	objects, err := hub.store.QueryAround(req.Space, req.Lat, req.Lon, radiusKm)
	if err != nil {
		return hub.storeReply(err)
	}
	return blockReply(objects)
}

func cmdQueryNearest(hub *Hub, req *request) reply {
	if req.N < 1 {
		return lineReply(respInvalidCommand)
	}
	objects, err := hub.store.QueryNearest(req.Space, req.Lat, req.Lon, req.N)
	if err != nil {
		return hub.storeReply(err)
	}
	return blockReply(objects)
}
