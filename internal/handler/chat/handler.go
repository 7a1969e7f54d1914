package chat

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/campus-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/campus-chat/backend/internal/service/chat"
	"github.com/zhouzirui/campus-chat/backend/pkg/utils"
)

// Replier answers a widget message.
type Replier interface {
	Reply(ctx context.Context, req chat.Request) (string, error)
}

// Handler 聊天接口的HTTP处理器
type Handler struct {
	chatSvc Replier
}

// New 创建聊天处理器
func New(chatSvc Replier) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat answers {message, kb?, lang?} with {reply} or {error}.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chat.Request
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.Reply(r.Context(), payload)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, chat.Reply{Reply: reply})
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "Empty message")
	case errors.Is(err, chatService.ErrUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "The assistant is not available right now.")
	default:
		log.Printf("[chat] request=%s error: %v", middleware.GetReqID(r.Context()), err)
		utils.RespondError(w, http.StatusInternalServerError, "Server error processing your request.")
	}
}
