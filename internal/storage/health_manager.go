package storage

import (
	"context"
	"sync"
	"time"
)

// HealthStatus values
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthData is the last known health of a storage backend
type HealthData struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthChecker is implemented by backends that can report their health
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthData
}

// HealthManager keeps the latest health of each registered backend
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	health   map[string]HealthData
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		health:   make(map[string]HealthData),
	}
}

// Register adds a backend under name
func (hm *HealthManager) Register(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// Refresh runs every registered check and stores the results
func (hm *HealthManager) Refresh(ctx context.Context) map[string]HealthData {
	hm.mu.RLock()
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, c := range hm.checkers {
		checkers[name] = c
	}
	hm.mu.RUnlock()

	results := make(map[string]HealthData, len(checkers))
	for name, c := range checkers {
		results[name] = *c.CheckHealth(ctx)
	}

	hm.mu.Lock()
	for name, h := range results {
		hm.health[name] = h
	}
	hm.mu.Unlock()

	return results
}

// Healthy reports whether every backend was healthy at its last check
func (hm *HealthManager) Healthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	for _, h := range hm.health {
		if h.Status != HealthStatusHealthy {
			return false
		}
	}
	return true
}

// pinger is satisfied by *sql.DB
type pinger interface {
	PingContext(ctx context.Context) error
}

// PingHealth builds a HealthData from a database ping
func PingHealth(ctx context.Context, db pinger) *HealthData {
	h := &HealthData{LastCheck: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		h.Status = HealthStatusUnhealthy
		h.Message = "ping failed"
		h.Error = err.Error()
		return h
	}
	h.Status = HealthStatusHealthy
	h.Message = "ok"
	return h
}
