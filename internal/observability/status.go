package observability

import (
	"context"
	"sync"
	"time"
)

// SystemStatus is the process-wide view of which agent is active.
type SystemStatus struct {
	mu            sync.RWMutex
	ActiveAgent   string
	AgentStatus   string
	ActiveTask    string
	LastHeartbeat time.Time
}

// Snapshot is a copy of SystemStatus safe to read without locking.
type Snapshot struct {
	ActiveAgent   string
	AgentStatus   string
	ActiveTask    string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	AgentStatus:   "IDLE",
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status. An empty agent means nobody is active.
func SetStatus(agent, status, task string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.ActiveAgent = agent
	globalStatus.AgentStatus = status
	globalStatus.ActiveTask = task
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() Snapshot {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return Snapshot{
		ActiveAgent:   globalStatus.ActiveAgent,
		AgentStatus:   globalStatus.AgentStatus,
		ActiveTask:    globalStatus.ActiveTask,
		LastHeartbeat: globalStatus.LastHeartbeat,
	}
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}

type sessionKey struct{}

// WithSessionID tags ctx so downstream events carry the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the id stored by WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
