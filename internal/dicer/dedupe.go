package dicer

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDedupeSize = 1 << 16

// seenSet remembers recent location ids. Only the dispatcher touches it, so
// the cache's own locking is enough.
type seenSet struct {
	lru *lru.Cache[int64, struct{}]
}

func newSeenSet(size int) *seenSet {
	if size <= 0 {
		size = defaultDedupeSize
	}
	c, _ := lru.New[int64, struct{}](size)
	return &seenSet{lru: c}
}

// firstTime reports whether id has not been seen yet and records it.
func (s *seenSet) firstTime(id int64) bool {
	ok, _ := s.lru.ContainsOrAdd(id, struct{}{})
	return !ok
}
