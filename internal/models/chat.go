package models

import (
	"time"
)

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a client-side transcript
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TripContext describes the trip a message refers to. All fields are optional.
type TripContext struct {
	TripID           string `json:"tripId,omitempty"`
	TrainNumber      string `json:"trainNumber,omitempty"`
	DepartureStation string `json:"departureStation,omitempty"`
	DepartureTime    string `json:"departureTime,omitempty"`
}

// ChatRequest is the body accepted by the chat gateway
type ChatRequest struct {
	Message string       `json:"message"`
	Context *TripContext `json:"context,omitempty"`
}

// ChatResponse is the body returned by the chat gateway on success
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body returned by the gateway on failure
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
