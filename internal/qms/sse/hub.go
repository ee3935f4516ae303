package sse

import (
	"encoding/json"
	"sync"

	"github.com/bitfantasy/nimo-qms/internal/qms/entity"
	"go.uber.org/zap"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections. Constructed explicitly and
// injected; there is no package-level instance.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Info("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Info("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)),
		)
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// SendToUser 给特定用户发送事件（而非广播）
func (h *Hub) SendToUser(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Events <- event:
			default:
				h.logger.Warn("SSE client buffer full, skipping user event", zap.String("client_id", client.ID))
			}
		}
	}
}

// PublishDefectEvent 广播缺陷生命周期事件（defect_created 等）。
// 标题/正文与前端通知中心的文案约定保持一致。
func (h *Hub) PublishDefectEvent(eventType string, d *entity.Defect) {
	payload := map[string]string{
		"defect_id": d.ID,
		"title":     defectEventTitle(eventType, d),
		"message":   defectEventMessage(eventType, d),
		"severity":  d.Severity,
		"action":    eventType,
	}
	data, _ := json.Marshal(payload)
	h.Broadcast(Event{EventType: eventType, Data: string(data)})
	h.logger.Info("Published defect event",
		zap.String("event", eventType),
		zap.String("defect_id", d.ID),
	)
}

func defectEventTitle(eventType string, d *entity.Defect) string {
	switch eventType {
	case entity.NotifyDefectCreated:
		return "New " + d.Severity + " Defect Detected"
	case entity.NotifyDefectResolved:
		return "Defect Successfully Resolved"
	case entity.NotifyDefectAssigned:
		return "New Defect Assignment"
	case entity.NotifyStatusChanged:
		return "Defect Status Updated"
	default:
		return "Defect Update"
	}
}

func defectEventMessage(eventType string, d *entity.Defect) string {
	switch eventType {
	case entity.NotifyDefectCreated:
		return d.DefectType + " detected on " + d.Component + " (" + d.PartNumber + ")"
	case entity.NotifyDefectResolved:
		return "Defect " + d.ID + " has been resolved and verified"
	case entity.NotifyDefectAssigned:
		return "You have been assigned to investigate defect " + d.ID
	case entity.NotifyStatusChanged:
		return "Defect " + d.ID + " status has been updated"
	default:
		return "Defect " + d.ID + " has been updated"
	}
}
