package chat

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// shardedLocks serializes operations per key (room or conversation) without
// keeping a mutex alive per key forever. Distinct keys may share a shard;
// that only costs contention, never correctness.
type shardedLocks struct {
	shards [lockShards]sync.Mutex
}

func newShardedLocks() *shardedLocks {
	return &shardedLocks{}
}

// Lock acquires the shard for key and returns the unlock func.
func (s *shardedLocks) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &s.shards[h.Sum32()%lockShards]
	m.Lock()
	return m.Unlock
}
