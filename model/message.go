package model

import (
	"fmt"
	"time"

	"semchat/platform"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// Message is immutable once created; there is no update path.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationId uint      `json:"conversation_id" gorm:"index:idx_conversation_id_created_at"`
	Role           string    `gorm:"type:varchar(64)" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	Model          string    `gorm:"type:varchar(128)" json:"model,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_conversation_id_created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func CreateMessage(message *Message) error {
	db := platform.DB
	if err := db.Create(message).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func GetMessageList(userId uint, conversationId uint) ([]Message, error) {
	if _, err := GetConversation(userId, conversationId); err != nil {
		return nil, err
	}

	db := platform.DB
	var messages []Message
	err := db.Where("conversation_id = ?", conversationId).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}
