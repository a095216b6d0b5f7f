// Package gateway terminates all external connections: the HTTP surface,
// the WebSocket protocol, and the access-control boundary in front of
// both.
package gateway

import (
	"time"

	"github.com/clawgate/clawgate/pkg/agent"
	"github.com/clawgate/clawgate/pkg/channels"
	"github.com/clawgate/clawgate/pkg/config"
	"github.com/clawgate/clawgate/pkg/cron"
	"github.com/clawgate/clawgate/pkg/session"
	"github.com/clawgate/clawgate/pkg/tools"
)

// State is the shared dependency bundle handed to every request handler.
// Each component synchronizes itself; State adds no locking of its own.
type State struct {
	Config    *config.Config
	Sessions  *session.Manager
	Registry  *tools.Registry
	Channels  *channels.Manager
	Cron      *cron.Service
	Agent     *agent.Agent
	authToken string
	startTime time.Time
}

func NewState(cfg *config.Config, sessions *session.Manager, registry *tools.Registry, chans *channels.Manager, cronSvc *cron.Service, ag *agent.Agent) *State {
	return &State{
		Config:    cfg,
		Sessions:  sessions,
		Registry:  registry,
		Channels:  chans,
		Cron:      cronSvc,
		Agent:     ag,
		authToken: cfg.Gateway.AuthToken,
		startTime: time.Now(),
	}
}

func (s *State) UptimeSeconds() int64 {
	return int64(time.Since(s.startTime).Seconds())
}
