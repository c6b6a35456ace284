// Package messaging pushes structure-version changes to connected clients so
// admin UIs can long-poll-free refresh when the content tree changes.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
)

// Client is one connected websocket watcher, scoped to a tenant.
type Client struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// VersionMessage is the payload sent to watchers on every structure change.
type VersionMessage struct {
	TenantID string    `json:"tenantId"`
	Version  int64     `json:"version"`
	At       time.Time `json:"at"`
}

// VersionBroadcaster fans structure-version bumps out to every watcher of the
// affected tenant. Slow clients are skipped rather than blocking the
// mutation path.
type VersionBroadcaster struct {
	tenantClients map[string]map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	publish       chan VersionMessage
	logger        *logging.ChanneledLogger
	mu            sync.RWMutex
}

// NewVersionBroadcaster creates a broadcaster. Run must be started as a
// goroutine before clients connect.
func NewVersionBroadcaster(logger *logging.ChanneledLogger) *VersionBroadcaster {
	return &VersionBroadcaster{
		tenantClients: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		publish:       make(chan VersionMessage, 64),
		logger:        logger,
	}
}

// Run is the broadcaster's main loop.
func (b *VersionBroadcaster) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*Client]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			b.mu.Unlock()
			b.logger.System().Debug("Version watcher registered", "tenantId", client.TenantID)

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			b.mu.Unlock()
			b.logger.System().Debug("Version watcher unregistered", "tenantId", client.TenantID)

		case msg := <-b.publish:
			b.broadcast(msg)
		}
	}
}

// Register queues a client for registration.
func (b *VersionBroadcaster) Register(client *Client) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *VersionBroadcaster) Unregister(client *Client) {
	b.unregister <- client
}

// PublishVersion notifies the tenant's watchers of a new structure version.
// Never blocks the caller.
func (b *VersionBroadcaster) PublishVersion(tenantID string, version int64) {
	msg := VersionMessage{TenantID: tenantID, Version: version, At: time.Now().UTC()}
	select {
	case b.publish <- msg:
	default:
		b.logger.System().Warn("Version publish queue full, dropping update", "tenantId", tenantID)
	}
}

func (b *VersionBroadcaster) broadcast(msg VersionMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.System().Error("Failed to encode version message", "error", err.Error())
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.tenantClients[msg.TenantID] {
		select {
		case client.Send <- data:
		default:
			// Slow watcher; it will resync from the version endpoint.
		}
	}
}

// WatcherCount reports connected watchers for a tenant.
func (b *VersionBroadcaster) WatcherCount(tenantID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tenantClients[tenantID])
}
