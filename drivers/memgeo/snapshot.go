package memgeo

import (
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/telesdb/go-teles/drivers"
)

var json = jsoniter.ConfigDefault

type snapshot struct {
	Spaces []snapshotSpace `json:"spaces"`
}

type snapshotSpace struct {
	Name    string           `json:"name"`
	Objects []snapshotObject `json:"objects"`
}

type snapshotObject struct {
	Name         string                `json:"name"`
	Associations []drivers.Association `json:"associations,omitempty"`
}

// SaveSnapshot writes the full store contents to a JSON file.
func (s *Store) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := s.capture()
	s.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// capture flattens the store into a deterministic snapshot. Caller holds at
// least the read lock.
func (s *Store) capture() snapshot {
	var snap snapshot
	for _, spaceName := range sortedSpaceNames(s.spaces) {
		sp := s.spaces[spaceName]
		ss := snapshotSpace{Name: spaceName}
		objects := make([]string, 0, len(sp.objects))
		for name := range sp.objects {
			objects = append(objects, name)
		}
		sort.Strings(objects)
		for _, object := range objects {
			so := snapshotObject{Name: object}
			for _, p := range sp.objects[object] {
				so.Associations = append(so.Associations, p.assoc)
			}
			sort.Slice(so.Associations, func(i, j int) bool {
				return so.Associations[i].GID < so.Associations[j].GID
			})
			ss.Objects = append(ss.Objects, so)
		}
		snap.Spaces = append(snap.Spaces, ss)
	}
	return snap
}

// LoadSnapshot replaces the store contents with those from a snapshot file.
// The GID counter resumes past the highest GID seen.
func (s *Store) LoadSnapshot(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	var snap snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces = make(map[string]*space)
	s.nextGID = 1
	for _, ss := range snap.Spaces {
		sp := newSpace()
		s.spaces[ss.Name] = sp
		for _, so := range ss.Objects {
			assocs := make(map[uint64]*point)
			sp.objects[so.Name] = assocs
			for _, a := range so.Associations {
				s.indexPoint(sp, assocs, so.Name, a)
				if a.GID >= s.nextGID {
					s.nextGID = a.GID + 1
				}
			}
		}
	}
	return nil
}

func sortedSpaceNames(spaces map[string]*space) []string {
	names := make([]string, 0, len(spaces))
	for name := range spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
