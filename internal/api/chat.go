package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

func (h *Handler) chatMessage(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.chat.Reply(c.Request.Context(), currentUser(c), req.Message)
	if err != nil {
		h.internalError(c, "chat reply", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) clearChat(c *gin.Context) {
	if err := h.chat.Reset(c.Request.Context(), currentUser(c)); err != nil {
		h.internalError(c, "clear chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared."})
}
