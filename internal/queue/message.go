package queue

import (
	"encoding/json"
	"time"
)

// CurrentVersion is the payload version written by this build.
const CurrentVersion = 1

// Message asks a worker to render one conversion.
type Message struct {
	ConversionID int64  `json:"conversionId"`
	DocumentID   int64  `json:"documentId"`
	RequestID    string `json:"requestId,omitempty"`
	EnqueuedAt   string `json:"enqueuedAt"`
	Version      int    `json:"version"`
}

// NewMessage stamps a message with the current time and version.
func NewMessage(conversionID, documentID int64, requestID string) Message {
	return Message{
		ConversionID: conversionID,
		DocumentID:   documentID,
		RequestID:    requestID,
		EnqueuedAt:   time.Now().UTC().Format(time.RFC3339),
		Version:      CurrentVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
