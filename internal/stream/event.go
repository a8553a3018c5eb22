// Package stream fans team message events out to live subscribers, locally
// or across instances over NATS.
package stream

import "time"

// EventTypeMessage tags a pushed message in the WebSocket envelope.
const EventTypeMessage = "message"

// Sender identifies who wrote a message.
type Sender struct {
	ID    string `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Email string `json:"email" msgpack:"email"`
}

// MessageEvent is a message as delivered to stream subscribers.
type MessageEvent struct {
	ID        string    `json:"id" msgpack:"id"`
	TeamID    string    `json:"teamId" msgpack:"team_id"`
	UserID    string    `json:"userId" msgpack:"user_id"`
	Content   string    `json:"content" msgpack:"content"`
	CreatedAt time.Time `json:"createdAt" msgpack:"created_at"`
	Sender    Sender    `json:"sender" msgpack:"sender"`
}

// Envelope is the JSON frame written to WebSocket clients.
type Envelope struct {
	Type    string       `json:"type"`
	Message MessageEvent `json:"message"`
}
