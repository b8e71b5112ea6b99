package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"semchat/model"
	"semchat/service"
)

type ChatController struct {
	chatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{chatService: chatService}
}

// SendMessage saves a user/AI message pair and returns it right away; the
// embeddings for both messages are generated in the background.
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	var input struct {
		ConversationId uint   `json:"conversationId"`
		Content        string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userId := c.GetUint("UserId")
	conversation, messages, err := ctrl.chatService.SendMessage(c.Request.Context(), userId, input.ConversationId, input.Content)
	if err != nil {
		logger.Warnf("[%s] Failed to send message: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversationId":  conversation.ID,
		"messages":        messages,
		"embeddingStatus": "generating",
	})
}

func (ctrl *ChatController) ListConversations(c *gin.Context) {
	userId := c.GetUint("UserId")
	conversations, err := model.GetConversationList(userId)
	if err != nil {
		logger.Warnf("[%s] Failed to list conversations: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (ctrl *ChatController) ListMessages(c *gin.Context) {
	conversationId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	userId := c.GetUint("UserId")
	messages, err := model.GetMessageList(userId, uint(conversationId))
	if err != nil {
		logger.Warnf("[%s] Failed to list messages: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
