package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/api"
	"github.com/lumacart/chatwidget/internal/client"
	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/repository"
	"github.com/lumacart/chatwidget/internal/service"
	"github.com/lumacart/chatwidget/internal/session"
	"github.com/lumacart/chatwidget/internal/store"
)

type fakeBackend struct {
	mu             sync.Mutex
	baseURL        string
	startCalls     int
	sendCalls      int
	lastSessionReq client.SessionRequest
	lastMessageReq client.MessageRequest
	startFn        func(client.SessionRequest) (*client.SessionEnvelope, error)
	sendFn         func(client.MessageRequest) (*client.MessageEnvelope, error)
}

func (f *fakeBackend) BaseURL() string {
	if f.baseURL == "" {
		return "http://backend.test"
	}
	return f.baseURL
}

func (f *fakeBackend) StartSession(ctx context.Context, req client.SessionRequest) (*client.SessionEnvelope, error) {
	f.mu.Lock()
	f.startCalls++
	f.lastSessionReq = req
	fn := f.startFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &client.SessionEnvelope{
		Session: domain.Session{SessionID: "s1", Messages: []domain.Message{}},
	}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, req client.MessageRequest) (*client.MessageEnvelope, error) {
	f.mu.Lock()
	f.sendCalls++
	f.lastMessageReq = req
	fn := f.sendFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &client.MessageEnvelope{
		Session: domain.Session{SessionID: req.SessionID},
	}, nil
}

func (f *fakeBackend) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.sendCalls
}

func newManager(t *testing.T, backend session.Backend, opts ...session.Option) (*session.Manager, store.Store) {
	t.Helper()
	st, err := store.New(store.DriverMemory)
	require.NoError(t, err)
	opts = append([]session.Option{session.WithSettleDelay(time.Millisecond)}, opts...)
	return session.New(backend, st, zap.NewNop(), opts...), st
}

func TestBootstrapStoresSessionAndSuggestions(t *testing.T) {
	// Scenario: fresh mount, no stored id, backend returns quick replies.
	backend := &fakeBackend{
		startFn: func(req client.SessionRequest) (*client.SessionEnvelope, error) {
			return &client.SessionEnvelope{Session: domain.Session{
				SessionID: "s1",
				Messages:  []domain.Message{},
				Context:   domain.SessionContext{QuickReplies: []string{"Track my order"}},
			}}, nil
		},
	}
	mgr, st := newManager(t, backend)

	require.NoError(t, mgr.Bootstrap(context.Background()))

	state := mgr.State()
	assert.False(t, state.Bootstrapping)
	assert.Empty(t, state.Messages)
	assert.Equal(t, []string{"Track my order"}, state.Suggestions)
	assert.Empty(t, state.Error)

	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s1", stored)
}

func TestBootstrapRunsOnce(t *testing.T) {
	backend := &fakeBackend{}
	mgr, _ := newManager(t, backend)

	require.NoError(t, mgr.Bootstrap(context.Background()))
	require.NoError(t, mgr.Bootstrap(context.Background()))
	require.NoError(t, mgr.Bootstrap(context.Background()))

	starts, _ := backend.counts()
	assert.Equal(t, 1, starts)
}

func TestBootstrapWithoutBackendAddress(t *testing.T) {
	mgr, _ := newManager(t, emptyBaseURL{})

	err := mgr.Bootstrap(context.Background())
	require.ErrorIs(t, err, domain.ErrBackendNotConfigured)

	state := mgr.State()
	assert.False(t, state.Bootstrapping)
	assert.Equal(t, session.MsgBackendNotConfigured, state.Error)
	// The user is never left with zero affordances.
	assert.Equal(t, domain.DefaultQuickReplies(), state.Suggestions)
}

type emptyBaseURL struct{}

func (emptyBaseURL) BaseURL() string { return "" }
func (emptyBaseURL) StartSession(context.Context, client.SessionRequest) (*client.SessionEnvelope, error) {
	panic("must not be called")
}
func (emptyBaseURL) SendMessage(context.Context, client.MessageRequest) (*client.MessageEnvelope, error) {
	panic("must not be called")
}

func TestHydrationTimeoutReportedDistinctly(t *testing.T) {
	// Scenario: backend exceeds the hydration deadline.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	backend := client.New(srv.URL, zap.NewNop(), client.WithHydrateTimeout(20*time.Millisecond))
	st, err := store.New(store.DriverMemory)
	require.NoError(t, err)
	mgr := session.New(backend, st, zap.NewNop())

	err = mgr.Bootstrap(context.Background())
	require.ErrorIs(t, err, domain.ErrTimeout)

	state := mgr.State()
	assert.False(t, state.Bootstrapping)
	assert.Equal(t, session.MsgTimeout, state.Error)
	assert.Empty(t, state.Messages)
}

func TestSendOptimisticAppendThenReplacement(t *testing.T) {
	serverCopy := []domain.Message{
		{Sender: domain.SenderUser, Message: "track order", Timestamp: time.Now()},
		{Sender: domain.SenderBot, Message: "On its way!", Timestamp: time.Now()},
	}

	release := make(chan struct{})
	backend := &fakeBackend{
		sendFn: func(req client.MessageRequest) (*client.MessageEnvelope, error) {
			<-release
			return &client.MessageEnvelope{Session: domain.Session{
				SessionID: "s1",
				Messages:  serverCopy,
			}}, nil
		},
	}
	mgr, _ := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	done := make(chan error, 1)
	go func() { done <- mgr.Send(context.Background(), "track order", nil) }()

	// Before the response arrives the optimistic entry is the last message.
	require.Eventually(t, func() bool {
		msgs := mgr.State().Messages
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)
	last := mgr.State().Messages[0]
	assert.Equal(t, domain.SenderUser, last.Sender)
	assert.Equal(t, "track order", last.Message)
	assert.NotEmpty(t, last.ID)
	assert.True(t, mgr.State().Sending)

	close(release)
	require.NoError(t, <-done)

	// The server's copy replaces local state; no duplicate optimistic entry.
	state := mgr.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "track order", state.Messages[0].Message)
	assert.Equal(t, domain.SenderBot, state.Messages[1].Sender)
	assert.False(t, state.Sending)
}

func TestOverlappingSendIsDropped(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		sendFn: func(req client.MessageRequest) (*client.MessageEnvelope, error) {
			<-release
			return &client.MessageEnvelope{Session: domain.Session{SessionID: "s1"}}, nil
		},
	}
	mgr, _ := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	done := make(chan error, 1)
	go func() { done <- mgr.Send(context.Background(), "first", nil) }()
	require.Eventually(t, func() bool {
		return mgr.State().Sending
	}, time.Second, time.Millisecond)

	// Second call while the first is pending is a no-op.
	require.NoError(t, mgr.Send(context.Background(), "second", nil))

	close(release)
	require.NoError(t, <-done)

	_, sends := backend.counts()
	assert.Equal(t, 1, sends)
}

func TestEmptyInputIsNoOp(t *testing.T) {
	backend := &fakeBackend{}
	mgr, _ := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))
	before := mgr.State().Messages

	require.NoError(t, mgr.Send(context.Background(), "", nil))
	require.NoError(t, mgr.Send(context.Background(), "   ", nil))

	_, sends := backend.counts()
	assert.Equal(t, 0, sends)
	assert.Equal(t, before, mgr.State().Messages)
}

func TestSendFailureKeepsOptimisticMessage(t *testing.T) {
	backend := &fakeBackend{
		sendFn: func(req client.MessageRequest) (*client.MessageEnvelope, error) {
			return nil, assert.AnError
		},
	}
	mgr, _ := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	err := mgr.Send(context.Background(), "hello", nil)
	require.Error(t, err)

	state := mgr.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "hello", state.Messages[0].Message)
	assert.Equal(t, session.MsgSendFailed, state.Error)
	assert.False(t, state.Sending)

	// Dismissing clears the banner but not the utterance.
	mgr.DismissError()
	assert.Empty(t, mgr.State().Error)
	assert.Len(t, mgr.State().Messages, 1)
}

func TestLogoutClearsIdentityAndRehydratesWithoutSessionID(t *testing.T) {
	backend := &fakeBackend{
		startFn: func(req client.SessionRequest) (*client.SessionEnvelope, error) {
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "authed-session"}}, nil
		},
	}
	mgr, st := newManager(t, backend)
	mgr.SetIdentity(domain.Identity{UserID: "U1", UserName: "Dana"})
	require.NoError(t, mgr.Bootstrap(context.Background()))

	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "authed-session", stored)

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{}, "U1")

	// The stored identifier is cleared immediately.
	stored, err = st.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	// After the settle delay a fresh hydration goes out with no session id
	// and no identity envelope.
	require.Eventually(t, func() bool {
		starts, _ := backend.counts()
		return starts == 2
	}, time.Second, time.Millisecond)

	backend.mu.Lock()
	req := backend.lastSessionReq
	backend.mu.Unlock()
	assert.Empty(t, req.SessionID)
	assert.Empty(t, req.UserID)
}

func TestLogoutClosesWidgetAndResetsState(t *testing.T) {
	backend := &fakeBackend{}
	closed := false
	mgr, _ := newManager(t, backend,
		session.WithOnCloseWidget(func() { closed = true }),
		session.WithSettleDelay(time.Hour), // keep the post-logout state observable
	)
	mgr.SetIdentity(domain.Identity{UserID: "U1"})
	require.NoError(t, mgr.Bootstrap(context.Background()))

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{}, "U1")

	assert.True(t, closed)
	state := mgr.State()
	assert.Empty(t, state.SessionID)
	assert.Empty(t, state.Messages)
	assert.True(t, state.Bootstrapping)
}

func TestLoginSupersedesAnonymousSession(t *testing.T) {
	backend := &fakeBackend{}
	mgr, st := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))
	require.Equal(t, "s1", mgr.State().SessionID)

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{UserID: "U1", UserName: "Dana"}, "")

	require.Eventually(t, func() bool {
		starts, _ := backend.counts()
		return starts == 2
	}, time.Second, time.Millisecond)

	backend.mu.Lock()
	req := backend.lastSessionReq
	backend.mu.Unlock()
	assert.Empty(t, req.SessionID, "anonymous session must not be resumed for the new identity")
	assert.Equal(t, "U1", req.UserID)

	require.Eventually(t, func() bool {
		id, _ := st.Get(context.Background())
		return id == "s1"
	}, time.Second, time.Millisecond)
}

func TestLogoutDeliveredDuringHydrationIsNotUndone(t *testing.T) {
	// The logout arrives from the update callback that fires right after
	// the hydration result is applied. Its store.Clear must win over the
	// hydration's persist; otherwise the next hydration would resume the
	// authenticated user's session anonymously.
	backend := &fakeBackend{
		startFn: func(req client.SessionRequest) (*client.SessionEnvelope, error) {
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "authed-session"}}, nil
		},
	}

	var (
		mgr  *session.Manager
		once sync.Once
	)
	onUpdate := func(s session.State) {
		if s.SessionID != "authed-session" {
			return
		}
		once.Do(func() {
			mgr.OnUserIdentityChanged(context.Background(), domain.Identity{}, "U1")
		})
	}
	mgr, st := newManager(t, backend,
		session.WithOnUpdate(onUpdate),
		session.WithSettleDelay(time.Hour),
	)
	mgr.SetIdentity(domain.Identity{UserID: "U1"})

	require.NoError(t, mgr.Bootstrap(context.Background()))

	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored, "logout clear must not be overwritten by the hydration it raced")

	state := mgr.State()
	assert.Empty(t, state.SessionID)
	assert.Empty(t, state.Messages)
}

func TestSupersededLoginHydrationIsDiscarded(t *testing.T) {
	// A logout lands while the login hydration is still in flight. The
	// login hydration must neither apply nor persist its result.
	release := make(chan struct{})
	backend := &fakeBackend{}
	backend.startFn = func(req client.SessionRequest) (*client.SessionEnvelope, error) {
		backend.mu.Lock()
		n := backend.startCalls
		backend.mu.Unlock()
		switch n {
		case 1:
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "anon"}}, nil
		case 2:
			<-release
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "login-session"}}, nil
		default:
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "fresh"}}, nil
		}
	}
	mgr, st := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{UserID: "U1"}, "")
	require.Eventually(t, func() bool {
		starts, _ := backend.counts()
		return starts == 2
	}, time.Second, time.Millisecond)

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{}, "U1")
	close(release)

	require.Eventually(t, func() bool {
		return mgr.State().SessionID == "fresh"
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "fresh", mgr.State().SessionID)
	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored)
}

func TestUnchangedIdentityIsIgnored(t *testing.T) {
	backend := &fakeBackend{}
	mgr, _ := newManager(t, backend)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{UserID: "U1"}, "U1")
	mgr.OnUserIdentityChanged(context.Background(), domain.Identity{}, "")

	time.Sleep(20 * time.Millisecond)
	starts, _ := backend.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, "s1", mgr.State().SessionID)
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		startFn: func(req client.SessionRequest) (*client.SessionEnvelope, error) {
			<-release
			return &client.SessionEnvelope{Session: domain.Session{SessionID: "stale"}}, nil
		},
	}
	mgr, st := newManager(t, backend)

	done := make(chan error, 1)
	go func() { done <- mgr.Bootstrap(context.Background()) }()
	require.Eventually(t, func() bool {
		starts, _ := backend.counts()
		return starts == 1
	}, time.Second, time.Millisecond)

	mgr.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, mgr.State().SessionID, "stale hydration result must be discarded")
	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

// TestResumeAgainstStubBackend exercises the full round trip through the
// real HTTP client and the stub server: the stored identifier is echoed
// back on a second hydration.
func TestResumeAgainstStubBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(t.TempDir() + "/chatbotd.db")
	require.NoError(t, err)
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db)
	router := api.SetupRouter(
		service.NewChatService(sessionRepo, zap.NewNop()),
		service.NewAdminService(sessionRepo),
		api.RouterConfig{AllowOrigins: []string{"*"}},
	)
	srv := httptest.NewServer(router)
	defer srv.Close()

	st, err := store.New(store.DriverMemory)
	require.NoError(t, err)

	backend := client.New(srv.URL, zap.NewNop())
	mgr := session.New(backend, st, zap.NewNop())
	require.NoError(t, mgr.Bootstrap(context.Background()))

	first := mgr.State()
	require.NotEmpty(t, first.SessionID)
	stored, err := st.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.SessionID, stored)

	require.NoError(t, mgr.Send(context.Background(), "Cancel an order", nil))
	afterSend := mgr.State()
	require.NotEmpty(t, afterSend.Messages)
	ticket := afterSend.Messages[len(afterSend.Messages)-1]
	assert.Equal(t, domain.PayloadTicket, ticket.Payload.Kind)
	assert.Equal(t, "T-42", ticket.Payload.TicketID)

	// A second manager with the same store resumes the same conversation.
	mgr2 := session.New(client.New(srv.URL, zap.NewNop()), st, zap.NewNop())
	require.NoError(t, mgr2.Bootstrap(context.Background()))

	resumed := mgr2.State()
	assert.Equal(t, first.SessionID, resumed.SessionID)
	assert.Equal(t, len(afterSend.Messages), len(resumed.Messages))
}
