package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/domain"
)

// OnUserIdentityChanged keeps conversation identity and authenticated
// user identity from diverging. Whoever owns authentication state calls
// it with the previous and new user ids on every login/logout.
//
// Login starts a fresh session immediately so the backend can link it to
// the authenticated user. Logout additionally wipes everything visible,
// asks the widget to close, and re-hydrates only after a settle delay so
// concurrent auth teardown elsewhere in the app finishes first. Either
// way the stored identifier is erased: a session created by one identity
// is never appended to by another.
func (m *Manager) OnUserIdentityChanged(ctx context.Context, identity domain.Identity, oldUserID string) {
	newUserID := identity.UserID
	if oldUserID == newUserID {
		m.SetIdentity(identity)
		return
	}

	logout := newUserID == ""

	m.mu.Lock()
	m.identity = identity
	m.resetLocked(logout)
	// Clearing under the lock keeps it ordered against a concurrent
	// hydration's persist, which writes the store in the same critical
	// section as its epoch check.
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear stored session id", zap.Error(err))
	}
	ep := m.epoch
	m.mu.Unlock()
	m.publish()

	if logout {
		m.logger.Info("identity transition: logout")
		if m.onCloseWidget != nil {
			m.onCloseWidget()
		}
		go m.rehydrateAfter(ctx, m.settleDelay, ep)
		return
	}

	// Covers both login and a direct account switch.
	m.logger.Info("identity transition: login", zap.String("user_id", newUserID))
	go m.hydrate(ctx, ep)
}

// rehydrateAfter re-hydrates once the delay elapses. hydrate itself
// refuses to run when ep has been superseded in the meantime.
func (m *Manager) rehydrateAfter(ctx context.Context, delay time.Duration, ep uint64) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	m.hydrate(ctx, ep)
}
