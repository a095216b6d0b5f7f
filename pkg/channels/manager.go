package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clawgate/clawgate/pkg/logger"
)

// Manager owns the registered channel plugins and fans outgoing messages
// to the right one.
type Manager struct {
	mu      sync.RWMutex
	plugins map[string]ChannelPlugin
}

func NewManager() *Manager {
	return &Manager{plugins: make(map[string]ChannelPlugin)}
}

func (m *Manager) Register(plugin ChannelPlugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins[plugin.Name()] = plugin
}

func (m *Manager) Get(name string) (ChannelPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[name]
	return p, ok
}

// Names returns registered channel names sorted for stable reporting.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// StartAll starts every plugin with the shared inbound handler. A plugin
// that fails to start is logged and skipped; the rest keep running.
func (m *Manager) StartAll(ctx context.Context, handler MessageHandler) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, plugin := range m.plugins {
		if err := plugin.Start(ctx, handler); err != nil {
			logger.ErrorCF("channels", "failed to start channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
			continue
		}
		logger.InfoCF("channels", "channel started", map[string]any{
			"channel": name,
		})
	}
}

// Send routes an outgoing message to its plugin.
func (m *Manager) Send(ctx context.Context, msg *OutgoingMessage) error {
	plugin, ok := m.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("unknown channel: %s", msg.Channel)
	}
	return plugin.Send(ctx, msg)
}
