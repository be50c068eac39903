// Package session persists tutoring conversations to PostgreSQL.
//
// Each browser conversation maps to one session row; its messages carry a
// per-session sequence number assigned under a row lock, so concurrent
// requests on the same session cannot interleave sequences.
package session

import (
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Message roles as stored in the database.
// These match ai.Role values so conversion is a cast.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Session is a tutoring conversation.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Message is a single conversation turn.
type Message struct {
	ID        int64     `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// History holds a conversation's messages with thread-safe access.
// The zero value is not useful; use NewHistory.
type History struct {
	mu       sync.RWMutex
	messages []*ai.Message
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{messages: make([]*ai.Message, 0)}
}

// NewHistoryFromMessages creates a History seeded with messages.
func NewHistoryFromMessages(messages []*ai.Message) *History {
	h := NewHistory()
	h.SetMessages(messages)
	return h
}

// SetMessages replaces all messages. A defensive copy is taken.
func (h *History) SetMessages(messages []*ai.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]*ai.Message, len(messages))
	copy(h.messages, messages)
}

// Messages returns a copy of the messages.
func (h *History) Messages() []*ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*ai.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Add appends a user question and the model's answer as one exchange.
func (h *History) Add(question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages,
		ai.NewUserMessage(ai.NewTextPart(question)),
		ai.NewModelMessage(ai.NewTextPart(answer)),
	)
}

// Count returns the number of messages.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear removes all messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
}
