// Package widget is the presentation layer: it renders session state as
// terminal text and owns purely local UI state (open/closed, draft,
// scroll position). No business rule lives here; every decision traces
// back to a session.State field.
package widget

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lumacart/chatwidget/internal/session"
)

// Widget holds the local UI state of one chat window.
type Widget struct {
	mu        sync.Mutex
	open      bool
	draft     string
	sessionID string // conversation the scroll cursor belongs to
	rendered  int    // messages already shown; the scroll cursor
}

// New creates a closed widget
func New() *Widget {
	return &Widget{}
}

// Open opens the chat window and resets the scroll cursor so the whole
// transcript is shown.
func (w *Widget) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = true
	w.rendered = 0
}

// Close closes the chat window
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
	w.draft = ""
	w.rendered = 0
}

// IsOpen reports whether the window is shown
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// SetDraft stores the in-progress input line
func (w *Widget) SetDraft(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = text
}

// Draft returns the in-progress input line
func (w *Widget) Draft() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Render produces the text to append for the given state: any messages
// not yet shown (auto-scroll to latest), the typing indicator while a
// send is outstanding, the error banner, the order context bar, and the
// quick replies. Returns "" while the window is closed.
func (w *Widget) Render(st session.State) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ""
	}

	var b strings.Builder

	if st.Bootstrapping {
		b.WriteString("connecting to assistant...\n")
		return b.String()
	}

	if st.SessionID != w.sessionID {
		// A different conversation; the cursor no longer points into it.
		w.sessionID = st.SessionID
		w.rendered = 0
	}
	if w.rendered > len(st.Messages) {
		// Conversation was replaced wholesale; start over.
		w.rendered = 0
	}
	for _, msg := range st.Messages[w.rendered:] {
		b.WriteString(RenderMessage(msg))
	}
	w.rendered = len(st.Messages)

	if st.OrderSnapshot != nil {
		b.WriteString(RenderOrderSnapshot(*st.OrderSnapshot) + "\n")
	}
	if st.Sending {
		b.WriteString(typingIndicator + "\n")
	}
	if st.Error != "" {
		fmt.Fprintf(&b, "! %s (press enter to dismiss)\n", st.Error)
	}
	if !st.Sending {
		b.WriteString(RenderSuggestions(st.Suggestions))
	}

	return b.String()
}
