// Package redis mirrors live Session liveness into Redis. It is
// deliberately not an authority: the live *domain.Session values still
// live only in this process's memory.Registry, matching the teacher's
// redis.SessionStore note that true cross-instance distribution would need
// a pub/sub projector on top of this. Here it buys an external,
// inspectable "is session X still alive" marker with a TTL, plus a
// pub/sub announcement when a Session ends.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom/internal/app"
	"quizroom/internal/infra/memory"
)

// endedChannel is where a Session's terminal deletion is announced, so a
// process other than the one that owns the Session can observe it ended
// without polling.
const endedChannel = "quizroom:session:ended"

// RegistryMirror wraps an in-process memory.Registry and mirrors every
// create/delete into Redis as a best-effort liveness marker.
type RegistryMirror struct {
	inner  *memory.Registry
	client *redis.Client
	ttl    time.Duration
}

// NewRegistryMirror builds a RegistryMirror around a fresh in-process
// registry, using client to mark liveness with the given ttl.
func NewRegistryMirror(client *redis.Client, ttl time.Duration) *RegistryMirror {
	return &RegistryMirror{
		inner:  memory.NewRegistry(),
		client: client,
		ttl:    ttl,
	}
}

func (m *RegistryMirror) key(id string) string {
	return "quizroom:session:" + id
}

// TryCreate stores entry in the in-process registry and, on success, marks
// the session alive in Redis. The Redis write is best-effort: a failure
// there does not fail session creation, since Redis here is a liveness
// mirror, not the source of truth.
func (m *RegistryMirror) TryCreate(id string, entry *app.SessionEntry) bool {
	created := m.inner.TryCreate(id, entry)
	if created {
		_ = m.client.Set(context.Background(), m.key(id), "1", m.ttl).Err()
	}
	return created
}

// Get looks up the entry in the in-process registry; Redis is never
// consulted for reads, since this process already holds the Session value.
func (m *RegistryMirror) Get(id string) (*app.SessionEntry, bool) {
	return m.inner.Get(id)
}

// Delete removes the entry from the in-process registry, clears its Redis
// liveness marker, and publishes the id on endedChannel so any process
// watching Subscribe learns the Session ended.
func (m *RegistryMirror) Delete(id string) {
	m.inner.Delete(id)
	ctx := context.Background()
	_ = m.client.Del(ctx, m.key(id)).Err()
	_ = m.client.Publish(ctx, endedChannel, id).Err()
}

// Subscribe returns the Redis pub/sub subscription for session-ended
// notifications. Callers are responsible for closing it.
func (m *RegistryMirror) Subscribe(ctx context.Context) *redis.PubSub {
	return m.client.Subscribe(ctx, endedChannel)
}
