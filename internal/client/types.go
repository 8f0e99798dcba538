package client

import (
	"encoding/json"

	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/metadata"
)

// SessionRequest is the body of POST /api/chatbot/session. An absent
// SessionID signals "start a new conversation".
type SessionRequest struct {
	SessionID string        `json:"sessionId,omitempty"`
	UserID    string        `json:"userId,omitempty"`
	UserName  string        `json:"userName,omitempty"`
	UserEmail string        `json:"userEmail,omitempty"`
	Metadata  metadata.Meta `json:"metadata"`
}

// SessionEnvelope is the response of POST /api/chatbot/session
type SessionEnvelope struct {
	Session domain.Session `json:"session"`
}

// MessageMeta is the reduced metadata sent with each message
type MessageMeta struct {
	Timezone string `json:"timezone"`
}

// MessageRequest is the body of POST /api/chatbot/message. Extra holds
// structured quick-action fields spliced into the top level of the JSON
// object alongside the named fields.
type MessageRequest struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	UserID    string         `json:"userId,omitempty"`
	UserName  string         `json:"userName,omitempty"`
	UserEmail string         `json:"userEmail,omitempty"`
	Extra     map[string]any `json:"-"`
	Metadata  MessageMeta    `json:"metadata"`
}

// MarshalJSON splices the Extra fields into the top-level object. Named
// fields win over colliding extra keys.
func (r MessageRequest) MarshalJSON() ([]byte, error) {
	type plain MessageRequest
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]any, len(r.Extra)+6)
	for k, v := range r.Extra {
		merged[k] = v
	}
	var named map[string]any
	if err := json.Unmarshal(base, &named); err != nil {
		return nil, err
	}
	for k, v := range named {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// MessageEnvelope is the response of POST /api/chatbot/message
type MessageEnvelope struct {
	Session     domain.Session `json:"session"`
	Suggestions []string       `json:"suggestions,omitempty"`
}
