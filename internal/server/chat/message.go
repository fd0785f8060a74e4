package chat

import "time"

// Message is a single relayed payload between two identities. The payload is
// opaque to the server: Ciphertext may be an actual ciphertext accompanied by
// IV, or plaintext with IV empty. A message is immutable once stored.
type Message struct {
	ID              string    `json:"id"`
	ConversationKey string    `json:"chat_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Ciphertext      string    `json:"ciphertext"`
	IV              string    `json:"iv,omitempty"`
	Timestamp       time.Time `json:"ts"`
}
