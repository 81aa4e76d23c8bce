// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"sync"

	"golang.org/x/sys/cpu"
)

const registryShards = 16

// liveThreads maps OS thread IDs to the running Thread locked to them.
var liveThreads threadRegistry

// threadRegistry is a map[int]*Thread sharded by thread ID so that
// threads starting and exiting concurrently rarely share a lock.
//
// The zero value is ready to use.
type threadRegistry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu sync.Mutex
	m  map[int]*Thread
	_  cpu.CacheLinePad // avoid false sharing of neighboring shards' mutexes
}

func (r *threadRegistry) shard(id int) *registryShard {
	return &r.shards[uint(id)%registryShards]
}

func (r *threadRegistry) store(id int, t *Thread) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[int]*Thread)
	}
	s.m[id] = t
}

func (r *threadRegistry) load(id int) *Thread {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id]
}

// delete removes id from r if it still maps to t.
func (r *threadRegistry) delete(id int, t *Thread) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[id] == t {
		delete(s.m, id)
	}
}

// len returns the number of registered threads. It locks shards one at a
// time, so the result is not a consistent snapshot.
func (r *threadRegistry) len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}
