// Package session manages the lifecycle of one chatbot conversation:
// establishing or resuming it, sending user messages with optimistic
// local rendering, and keeping the conversation identity in step with
// the authenticated user.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/client"
	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/metadata"
	"github.com/lumacart/chatwidget/internal/store"
)

// User-facing error messages. The presentation layer renders these
// verbatim in the error banner.
const (
	MsgBackendNotConfigured = "The assistant is not configured for this store."
	MsgTimeout              = "The assistant took too long to respond. Please try again."
	MsgConnectFailed        = "Could not reach the assistant. Please try again later."
	MsgSendFailed           = "Your message could not be delivered. Please try again."
)

// DefaultSettleDelay is how long a logout transition waits before
// re-hydrating, letting concurrent auth teardown finish first.
const DefaultSettleDelay = 300 * time.Millisecond

// Backend is the slice of the chatbot API the manager needs.
// *client.Client implements it.
type Backend interface {
	BaseURL() string
	StartSession(ctx context.Context, req client.SessionRequest) (*client.SessionEnvelope, error)
	SendMessage(ctx context.Context, req client.MessageRequest) (*client.MessageEnvelope, error)
}

// State is an immutable snapshot of the conversation for rendering.
// Every rendering decision traces back to a field here.
type State struct {
	SessionID     string
	Messages      []domain.Message
	Suggestions   []string
	OrderSnapshot *domain.OrderSummary
	UserName      string
	Bootstrapping bool
	Sending       bool
	Error         string
}

// Manager owns one widget instance's conversation session. All state is
// guarded by a single mutex; network calls run outside it and their
// results are applied only if no newer lifecycle transition has occurred
// in the meantime (tracked by the epoch counter).
type Manager struct {
	backend Backend
	store   store.Store
	logger  *zap.Logger
	now     func() time.Time

	settleDelay   time.Duration
	onUpdate      func(State)
	onCloseWidget func()

	mu            sync.Mutex
	identity      domain.Identity
	sessionID     string
	messages      []domain.Message
	suggestions   []string
	orderSnapshot *domain.OrderSummary
	userName      string
	bootstrapping bool
	sending       bool
	errMsg        string

	hydrated bool   // one-shot guard for automatic hydration
	epoch    uint64 // bumped on every transition/close; stale results are discarded
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSettleDelay overrides the logout re-hydration delay.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) { m.settleDelay = d }
}

// WithOnUpdate registers a callback invoked after every state change.
func WithOnUpdate(fn func(State)) Option {
	return func(m *Manager) { m.onUpdate = fn }
}

// WithOnCloseWidget registers a callback invoked when the widget should
// close (logout transition).
func WithOnCloseWidget(fn func()) Option {
	return func(m *Manager) { m.onCloseWidget = fn }
}

// New creates a session manager
func New(backend Backend, st store.Store, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:       backend,
		store:         st,
		logger:        logger,
		now:           time.Now,
		settleDelay:   DefaultSettleDelay,
		bootstrapping: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetIdentity installs the identity envelope attached to subsequent
// requests without triggering a transition. Use OnUserIdentityChanged
// for login/logout.
func (m *Manager) SetIdentity(id domain.Identity) {
	m.mu.Lock()
	m.identity = id
	m.mu.Unlock()
}

// Bootstrap performs the automatic start-up hydration. It runs at most
// once per manager instance; later calls are no-ops so render retries
// cannot create duplicate sessions.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	if m.hydrated {
		m.mu.Unlock()
		return nil
	}
	m.hydrated = true
	ep := m.epoch
	m.mu.Unlock()

	return m.hydrate(ctx, ep)
}

// hydrate establishes or resumes the session. ep is the epoch the caller
// observed when it scheduled this hydration; state is only read and
// written while that epoch is still current, so a hydration superseded
// by a login/logout/close neither starts nor applies.
func (m *Manager) hydrate(ctx context.Context, ep uint64) error {
	m.mu.Lock()
	if m.epoch != ep {
		m.mu.Unlock()
		return nil
	}
	m.bootstrapping = true
	m.errMsg = ""
	identity := m.identity
	m.mu.Unlock()
	m.publish()

	if m.backend == nil || m.backend.BaseURL() == "" {
		m.mu.Lock()
		if m.epoch == ep {
			m.bootstrapping = false
			m.errMsg = MsgBackendNotConfigured
			if len(m.suggestions) == 0 {
				m.suggestions = domain.DefaultQuickReplies()
			}
		}
		m.mu.Unlock()
		m.publish()
		return domain.ErrBackendNotConfigured
	}

	storedID, err := m.store.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to read stored session id", zap.Error(err))
		storedID = ""
	}

	env, err := m.backend.StartSession(ctx, client.SessionRequest{
		SessionID: storedID,
		UserID:    identity.UserID,
		UserName:  identity.UserName,
		UserEmail: identity.UserEmail,
		Metadata:  metadata.Snapshot(),
	})

	m.mu.Lock()
	if m.epoch != ep {
		// A newer transition owns the state now; discard this result.
		m.mu.Unlock()
		return nil
	}
	m.bootstrapping = false

	if err != nil {
		m.errMsg = hydrateErrorMessage(err)
		if len(m.suggestions) == 0 {
			m.suggestions = domain.DefaultQuickReplies()
		}
		m.mu.Unlock()
		m.publish()
		m.logger.Warn("hydration failed", zap.Error(err))
		return err
	}

	m.applySessionLocked(env.Session, nil)
	sessionID := m.sessionID
	// Persist inside the critical section so a concurrent transition's
	// store.Clear, which runs under the same lock, cannot be overwritten
	// by a stale identifier.
	if err := m.store.Set(ctx, sessionID); err != nil {
		m.logger.Warn("failed to persist session id", zap.Error(err))
	}
	m.mu.Unlock()
	m.publish()

	m.logger.Info("session hydrated",
		zap.String("session_id", sessionID),
		zap.Bool("resumed", storedID != ""),
	)
	return nil
}

// Send transmits one user utterance. Empty input and overlapping sends
// are silent no-ops. The utterance is appended optimistically before the
// round trip; on success the server's copy of the conversation replaces
// local state wholesale, on failure the optimistic entry stays visible
// and an error banner invites a retry.
func (m *Manager) Send(ctx context.Context, text string, extra map[string]any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if m.backend == nil || m.backend.BaseURL() == "" {
		return nil
	}

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return nil
	}
	m.sending = true
	ep := m.epoch
	now := m.now()
	optimistic := domain.Message{
		ID:        fmt.Sprintf("local-%d", now.UnixNano()),
		Sender:    domain.SenderUser,
		Message:   text,
		Timestamp: now,
	}
	m.messages = append(m.messages, optimistic)
	sessionID := m.sessionID
	identity := m.identity
	m.mu.Unlock()
	m.publish()

	env, err := m.backend.SendMessage(ctx, client.MessageRequest{
		SessionID: sessionID,
		Message:   text,
		UserID:    identity.UserID,
		UserName:  identity.UserName,
		UserEmail: identity.UserEmail,
		Extra:     extra,
		Metadata:  client.MessageMeta{Timezone: metadata.Timezone()},
	})

	m.mu.Lock()
	if m.epoch != ep {
		// State was reset while in flight; the transition already
		// cleared the sending flag. Nothing to apply.
		m.mu.Unlock()
		return nil
	}
	m.sending = false

	if err != nil {
		// The user's utterance stays visible; only the bot reply is lost.
		m.errMsg = MsgSendFailed
		m.mu.Unlock()
		m.publish()
		m.logger.Warn("message send failed", zap.Error(err))
		return err
	}

	m.applySessionLocked(env.Session, env.Suggestions)
	if err := m.store.Set(ctx, m.sessionID); err != nil {
		m.logger.Warn("failed to persist session id", zap.Error(err))
	}
	m.mu.Unlock()
	m.publish()
	return nil
}

// Restart discards the current conversation and starts a fresh one.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	m.resetLocked(true)
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear stored session id", zap.Error(err))
	}
	ep := m.epoch
	m.mu.Unlock()
	m.publish()
	return m.hydrate(ctx, ep)
}

// Close invalidates the manager: any in-flight result arriving after
// this point is discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	m.epoch++
	m.sending = false
	m.mu.Unlock()
}

// DismissError clears the error banner
func (m *Manager) DismissError() {
	m.mu.Lock()
	m.errMsg = ""
	m.mu.Unlock()
	m.publish()
}

// State returns a snapshot safe to read while the manager keeps working
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	s := State{
		SessionID:     m.sessionID,
		Messages:      append([]domain.Message(nil), m.messages...),
		Suggestions:   append([]string(nil), m.suggestions...),
		UserName:      m.userName,
		Bootstrapping: m.bootstrapping,
		Sending:       m.sending,
		Error:         m.errMsg,
	}
	if m.orderSnapshot != nil {
		snapshot := *m.orderSnapshot
		s.OrderSnapshot = &snapshot
	}
	return s
}

// applySessionLocked replaces local conversation state wholesale with
// the server's authoritative copy. suggestions, when non-nil, overrides
// the session context's quick replies (the message endpoint returns them
// separately).
func (m *Manager) applySessionLocked(sess domain.Session, suggestions []string) {
	m.sessionID = sess.SessionID
	m.messages = sess.Messages
	m.orderSnapshot = sess.Context.OrderSnapshot
	if sess.UserName != "" {
		m.userName = sess.UserName
	}
	switch {
	case suggestions != nil:
		m.suggestions = suggestions
	default:
		m.suggestions = sess.Context.QuickReplies
	}
	m.errMsg = ""
}

// resetLocked drops all conversation state. full additionally clears
// suggestions, the error slot, and flips the bootstrapping flag back on
// so the UI shows a connecting state instead of stale content.
func (m *Manager) resetLocked(full bool) {
	m.epoch++
	m.sessionID = ""
	m.messages = nil
	m.orderSnapshot = nil
	m.userName = ""
	m.sending = false
	if full {
		m.suggestions = nil
		m.errMsg = ""
		m.bootstrapping = true
	}
}

func (m *Manager) publish() {
	if m.onUpdate == nil {
		return
	}
	m.mu.Lock()
	s := m.stateLocked()
	m.mu.Unlock()
	m.onUpdate(s)
}

func hydrateErrorMessage(err error) string {
	if errors.Is(err, domain.ErrTimeout) {
		return MsgTimeout
	}
	return MsgConnectFailed
}
