package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/internal/chat"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

const maxProxyMessages = 50

type chatProxyRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// POST /api/chat forwards a client-held conversation. It keeps no state.
func (s *Server) handleChatProxy(c *gin.Context) {
	var req chatProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		writeError(c, http.StatusBadRequest, "messages are required")
		return
	}
	if len(req.Messages) > maxProxyMessages {
		req.Messages = req.Messages[len(req.Messages)-maxProxyMessages:]
	}

	history := make([]model.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := model.Role(strings.ToLower(m.Role))
		if role != model.RoleUser && role != model.RoleAssistant {
			continue
		}
		history = append(history, model.ChatMessage{Role: role, Content: m.Content})
	}
	if len(history) == 0 || history[len(history)-1].Role != model.RoleUser {
		writeError(c, http.StatusBadRequest, "last message must be from the user")
		return
	}

	reply, err := s.llm.Complete(c.Request.Context(), history)
	if err != nil {
		appLog.Error("api chat failed", err, "turns", len(history))
		writeError(c, http.StatusInternalServerError, "Failed to get response")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

type chatSendRequest struct {
	Message string `json:"message" form:"message"`
}

// POST /chat/send
func (s *Server) handleChatSend(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}

	sess := visitor(c).Chat
	reply, err := sess.Send(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, "message is required")
		return
	case errors.Is(err, chat.ErrBusy):
		writeError(c, http.StatusConflict, "a reply is still on its way")
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "Failed to get response")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "messages": sess.Messages(), "pending": sess.Pending()})
}

// GET /chat/messages
func (s *Server) handleChatMessages(c *gin.Context) {
	sess := visitor(c).Chat
	c.JSON(http.StatusOK, gin.H{"messages": sess.Messages(), "pending": sess.Pending()})
}
