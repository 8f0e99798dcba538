package service

import (
	"context"

	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/repository"
)

// Stats represents stub backend statistics
type Stats struct {
	TotalSessions int `json:"total_sessions"`
	TotalMessages int `json:"total_messages"`
}

// AdminService handles operational endpoints of the stub backend
type AdminService struct {
	sessionRepo *repository.SessionRepository
}

// NewAdminService creates a new admin service
func NewAdminService(sessionRepo *repository.SessionRepository) *AdminService {
	return &AdminService{sessionRepo: sessionRepo}
}

// ListSessions returns all stored sessions
func (s *AdminService) ListSessions(ctx context.Context) ([]*repository.SessionRecord, error) {
	return s.sessionRepo.List()
}

// PurgeSession removes a session and its history
func (s *AdminService) PurgeSession(ctx context.Context, id string) error {
	rec, err := s.sessionRepo.Get(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return domain.ErrNotFound
	}
	return s.sessionRepo.Delete(id)
}

// GetStats returns counts across all sessions
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	sessions, err := s.sessionRepo.List()
	if err != nil {
		return nil, err
	}
	messages, err := s.sessionRepo.CountMessages()
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalSessions: len(sessions),
		TotalMessages: messages,
	}, nil
}
