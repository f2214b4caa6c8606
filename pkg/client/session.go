package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
)

// Transcript texts shown to the traveller
const (
	WelcomeMessage = "Bonjour ! Je suis votre assistant SNCF. Comment puis-je vous aider aujourd'hui ?\n\n" +
		"Je peux vous aider à réserver un taxi, vérifier l'état du trafic ou vous donner des informations sur votre prochain train."
	ApologyMessage = "Désolé, une erreur s'est produite. Veuillez réessayer."
)

var (
	// ErrEmptyMessage is returned for blank content; nothing is appended
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInProgress is returned while another Send is awaiting its reply
	ErrSendInProgress = errors.New("a message is already being sent")
	// ErrUnknownQuickAction is returned for an id not in QuickActions
	ErrUnknownQuickAction = errors.New("unknown quick action")
)

// QuickAction is a preset message offered as a shortcut
type QuickAction struct {
	ID      string
	Label   string
	Message string
}

var quickActions = []QuickAction{
	{ID: "taxi", Label: "Réserver un taxi", Message: "Je souhaite réserver un taxi pour me rendre à la gare."},
	{ID: "train", Label: "Mon prochain train", Message: "Quelles sont les informations de mon prochain train ?"},
	{ID: "traffic", Label: "État du trafic", Message: "Quel est l'état du trafic vers la gare ?"},
}

// QuickActions lists the preset messages in display order
func QuickActions() []QuickAction {
	out := make([]QuickAction, len(quickActions))
	copy(out, quickActions)
	return out
}

// LookupQuickAction finds a preset by id
func LookupQuickAction(id string) (QuickAction, bool) {
	for _, a := range quickActions {
		if a.ID == id {
			return a, true
		}
	}
	return QuickAction{}, false
}

// DefaultTrip is the trip attached to messages when none is chosen
func DefaultTrip() *TripContext {
	return &TripContext{
		TripID:           "1",
		TrainNumber:      "TGV 6241",
		DepartureStation: "Paris Gare de Lyon",
		DepartureTime:    "08:47",
	}
}

// Sender delivers one message to the assistant. *Client implements it.
type Sender interface {
	SendMessage(ctx context.Context, message string, trip *TripContext) (string, error)
}

// Session is one traveller conversation: the transcript plus the trip
// context sent with each message. It is safe for concurrent use; sends are
// serialised and a second Send while one is pending fails fast.
type Session struct {
	sender Sender
	trip   *TripContext

	mu       sync.RWMutex
	messages []models.ChatMessage
	sending  atomic.Bool

	now func() time.Time
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithTrip sets the trip context sent with every message. nil sends none.
func WithTrip(trip *TripContext) SessionOption {
	return func(s *Session) { s.trip = trip }
}

// WithWelcome seeds the transcript with the assistant greeting.
func WithWelcome() SessionOption {
	return func(s *Session) {
		s.messages = append(s.messages, models.ChatMessage{
			ID:        "welcome",
			Role:      models.RoleAssistant,
			Content:   WelcomeMessage,
			Timestamp: s.now(),
		})
	}
}

// NewSession creates a session talking to sender
func NewSession(sender Sender, opts ...SessionOption) *Session {
	s := &Session{sender: sender, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send appends content as a user message, waits for the reply and appends
// it as an assistant message. When delivery fails the apology is appended
// instead and the delivery error is returned alongside it.
func (s *Session) Send(ctx context.Context, content string) (models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	if !s.sending.CompareAndSwap(false, true) {
		return models.ChatMessage{}, ErrSendInProgress
	}
	defer s.sending.Store(false)

	s.append(models.ChatMessage{
		ID:        "user-" + uuid.NewString(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: s.now(),
	})

	reply, err := s.sender.SendMessage(ctx, content, s.trip)
	if err != nil {
		return s.append(models.ChatMessage{
			ID:        "error-" + uuid.NewString(),
			Role:      models.RoleAssistant,
			Content:   ApologyMessage,
			Timestamp: s.now(),
		}), err
	}

	return s.append(models.ChatMessage{
		ID:        "assistant-" + uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: s.now(),
	}), nil
}

// SendQuickAction sends the preset message of the given action id
func (s *Session) SendQuickAction(ctx context.Context, id string) (models.ChatMessage, error) {
	action, ok := LookupQuickAction(id)
	if !ok {
		return models.ChatMessage{}, ErrUnknownQuickAction
	}
	return s.Send(ctx, action.Message)
}

func (s *Session) append(m models.ChatMessage) models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return m
}

// Messages returns a copy of the transcript
func (s *Session) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Pending reports whether a Send is awaiting its reply
func (s *Session) Pending() bool {
	return s.sending.Load()
}

// Trip returns the trip context sent with each message
func (s *Session) Trip() *TripContext {
	return s.trip
}
