package amqp

import (
	"encoding/json"
	"time"
)

// VerificationEmailMessage asks the worker to send a verification mail.
// It carries the signed token so the worker never needs database access.
type VerificationEmailMessage struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

func NewVerificationEmailMessage(email, token string) *VerificationEmailMessage {
	return &VerificationEmailMessage{
		Email:     email,
		Token:     token,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *VerificationEmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func VerificationEmailMessageFromJSON(data []byte) (*VerificationEmailMessage, error) {
	var msg VerificationEmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
