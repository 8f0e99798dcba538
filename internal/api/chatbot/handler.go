// Package chatbot exposes the two endpoints of the assistant session
// protocol.
package chatbot

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumacart/chatwidget/internal/domain"
	"github.com/lumacart/chatwidget/internal/service"
)

// sessionRequest is the body of POST /session. Metadata is accepted and
// ignored; the stub has no use for the environment fingerprint.
type sessionRequest struct {
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserEmail string         `json:"userEmail"`
	Metadata  map[string]any `json:"metadata"`
}

// messageRequest is the body of POST /message. Unknown extra fields from
// structured quick-action sends are simply not bound.
type messageRequest struct {
	SessionID string         `json:"sessionId" binding:"required"`
	Message   string         `json:"message" binding:"required"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserEmail string         `json:"userEmail"`
	Metadata  map[string]any `json:"metadata"`
}

// Handler handles chatbot protocol requests
type Handler struct {
	chatService *service.ChatService
}

// NewHandler creates a new chatbot handler
func NewHandler(chatService *service.ChatService) *Handler {
	return &Handler{chatService: chatService}
}

// RegisterRoutes registers chatbot routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/session", h.Session)
	r.POST("/message", h.Message)
}

// Session establishes or resumes a conversation session
func (h *Handler) Session(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.chatService.StartSession(c.Request.Context(), service.SessionInput{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// Message appends one user utterance and returns the authoritative session
func (h *Handler) Message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, suggestions, err := h.chatService.HandleMessage(c.Request.Context(), service.MessageInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sess, "suggestions": suggestions})
}
