package domain

// Session mirrors the authoritative conversation record held by the
// chatbot backend
type Session struct {
	SessionID string         `json:"sessionId"`
	Messages  []Message      `json:"messages"`
	Context   SessionContext `json:"context,omitempty"`
	UserName  string         `json:"userName,omitempty"`
}

// SessionContext holds ancillary session state
type SessionContext struct {
	QuickReplies  []string      `json:"quickReplies,omitempty"`
	OrderSnapshot *OrderSummary `json:"orderSnapshot,omitempty"`
}

// Identity is the user envelope attached to every session-related request.
// All fields are empty for an anonymous visitor.
type Identity struct {
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// IsAnonymous reports whether no authenticated user is attached
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// DefaultQuickReplies is the fallback suggestion set shown when the
// backend cannot be reached, so the widget never offers zero affordances.
func DefaultQuickReplies() []string {
	return []string{"Track my order", "Browse deals", "Talk to support"}
}
