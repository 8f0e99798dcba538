package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/repository"
)

const greeting = "Hi! I'm the Lumacart assistant. How can I help you today?"

// SessionInput carries the fields of a session-establishment request
type SessionInput struct {
	SessionID string
	UserID    string
	UserName  string
	UserEmail string
}

// MessageInput carries the fields of a message request
type MessageInput struct {
	SessionID string
	Message   string
	UserID    string
	UserName  string
	UserEmail string
}

// ChatService implements the chatbot protocol semantics over stored
// sessions, answering with scripted replies. It stands in for the
// production assistant during widget development and tests.
type ChatService struct {
	sessionRepo *repository.SessionRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(sessionRepo *repository.SessionRepository, logger *zap.Logger) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// StartSession resumes the session named by the request, or creates a
// fresh one seeded with a greeting turn and default quick replies when
// the identifier is absent or unknown. The full authoritative session is
// returned either way.
func (s *ChatService) StartSession(ctx context.Context, in SessionInput) (*domain.Session, error) {
	var rec *repository.SessionRecord

	if in.SessionID != "" {
		existing, err := s.sessionRepo.Get(in.SessionID)
		if err != nil {
			return nil, err
		}
		rec = existing
	}

	if rec == nil {
		rec = &repository.SessionRecord{
			UserID:   in.UserID,
			UserName: in.UserName,
			Context: domain.SessionContext{
				QuickReplies: domain.DefaultQuickReplies(),
			},
		}
		if err := s.sessionRepo.Create(rec); err != nil {
			return nil, err
		}
		welcome := domain.Message{
			Sender:    domain.SenderBot,
			Message:   greeting,
			Timestamp: s.now(),
		}
		if err := s.sessionRepo.CreateMessage(rec.ID, &welcome); err != nil {
			return nil, err
		}
		s.logger.Info("session created",
			zap.String("session_id", rec.ID),
			zap.String("user_id", in.UserID),
		)
	} else if in.UserID != "" && rec.UserID == "" {
		// Link the session to the authenticated identity.
		rec.UserID = in.UserID
		rec.UserName = in.UserName
		if err := s.sessionRepo.Update(rec); err != nil {
			return nil, err
		}
	}

	return s.assemble(rec)
}

// HandleMessage appends the user's utterance, produces the scripted bot
// reply, and returns the full session plus follow-up suggestions.
func (s *ChatService) HandleMessage(ctx context.Context, in MessageInput) (*domain.Session, []string, error) {
	rec, err := s.sessionRepo.Get(in.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, domain.ErrNotFound
	}

	userMsg := domain.Message{
		Sender:    domain.SenderUser,
		Message:   in.Message,
		Timestamp: s.now(),
	}
	if err := s.sessionRepo.CreateMessage(rec.ID, &userMsg); err != nil {
		return nil, nil, err
	}

	reply := scriptReply(in.Message)
	botMsg := domain.Message{
		Sender:    domain.SenderBot,
		Message:   reply.Text,
		Timestamp: s.now().Add(time.Millisecond),
		Payload:   reply.Payload,
	}
	if err := s.sessionRepo.CreateMessage(rec.ID, &botMsg); err != nil {
		return nil, nil, err
	}

	rec.Context.QuickReplies = reply.Suggestions
	rec.Context.OrderSnapshot = reply.OrderSnapshot
	if in.UserID != "" && rec.UserID == "" {
		rec.UserID = in.UserID
		rec.UserName = in.UserName
	}
	if err := s.sessionRepo.Update(rec); err != nil {
		return nil, nil, err
	}

	sess, err := s.assemble(rec)
	if err != nil {
		return nil, nil, err
	}
	return sess, reply.Suggestions, nil
}

func (s *ChatService) assemble(rec *repository.SessionRecord) (*domain.Session, error) {
	messages, err := s.sessionRepo.GetMessages(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &domain.Session{
		SessionID: rec.ID,
		Messages:  messages,
		Context:   rec.Context,
		UserName:  rec.UserName,
	}, nil
}
