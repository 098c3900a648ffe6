package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Define notification types
const (
	NotificationTypeWalletCredit = "wallet_credit"
	NotificationTypeRankAdvance  = "rank_advance"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	MemberID     string      `json:"memberID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	MemberID      primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.MemberID != primitive.NilObjectID {
				h.clients[client.MemberID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.MemberID != primitive.NilObjectID {
				if _, ok := h.clients[client.MemberID]; ok {
					delete(h.clients, client.MemberID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToMember sends a message to a specific member
func (h *Hub) SendToMember(memberID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[memberID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("member not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, memberID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Remove from unauthenticated clients
	if _, ok := h.unauthenticatedClients[client]; ok {
		delete(h.unauthenticatedClients, client)
	}

	client.Authenticated = true
	client.MemberID = memberID

	h.clients[memberID] = client

	return nil
}

// NotifyWalletCredit tells a member their wallet was credited
func (h *Hub) NotifyWalletCredit(memberID primitive.ObjectID, creditData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeWalletCredit,
		Message: "Your wallet has been credited",
		Data:    creditData,
	}

	return h.SendToMember(memberID, notification)
}

// NotifyRankAdvance tells a member their rank moved up
func (h *Hub) NotifyRankAdvance(memberID primitive.ObjectID, rankData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeRankAdvance,
		Message: "Congratulations, you reached a new rank",
		Data:    rankData,
	}

	return h.SendToMember(memberID, notification)
}
