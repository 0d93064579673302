package teles

import (
	"io"
	"math/rand"
	"sync"
)

// sessionList tracks live connections so Close can terminate them.
type sessionList struct {
	data map[int64]io.Closer
	mu   sync.Mutex
}

func newSessionList() *sessionList {
	return &sessionList{
		data: make(map[int64]io.Closer),
	}
}

func (s *sessionList) Add(closer io.Closer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var uid int64
	for {
		// Generate unique ID
		uid = rand.Int63()
		if _, ok := s.data[uid]; !ok {
			break
		}
	}
	s.data[uid] = closer
	return uid
}

func (s *sessionList) Remove(uid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, uid)
}

func (s *sessionList) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *sessionList) CloseAll() {
	s.mu.Lock()
	closers := make([]io.Closer, 0, len(s.data))
	for _, c := range s.data {
		closers = append(closers, c)
	}
	s.data = make(map[int64]io.Closer)
	s.mu.Unlock()

	for _, c := range closers {
		c.Close()
	}
}
