package health

import "time"

// Service reports liveness for the agent.
type Service struct {
	name    string
	version string
	started time.Time
	now     func() time.Time
}

// NewService constructs a health service for the named agent.
func NewService(name, version string) *Service {
	return &Service{name: name, version: version, started: time.Now(), now: time.Now}
}

// Status is the health payload returned by GET /health.
type Status struct {
	Status        string    `json:"status"`
	Agent         string    `json:"agent"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// Status returns the current health payload. The agent has no external
// dependencies it must reach to serve, so it is always healthy while running.
func (s *Service) Status() Status {
	now := s.now()
	return Status{
		Status:        "healthy",
		Agent:         s.name,
		Version:       s.version,
		Timestamp:     now.UTC(),
		UptimeSeconds: now.Sub(s.started).Seconds(),
	}
}
