package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"semchat/platform"
)

type Conversation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId    uint      `json:"user_id" gorm:"index:idx_user_id_updated_at"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_user_id_updated_at"`
}

func CreateConversation(conversation *Conversation) error {
	db := platform.DB
	if err := db.Create(conversation).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func GetConversation(userId uint, conversationId uint) (*Conversation, error) {
	var conversation Conversation
	db := platform.DB
	if err := db.Where("id = ? AND user_id = ?", conversationId, userId).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &conversation, nil
}

func GetConversationList(userId uint) ([]Conversation, error) {
	db := platform.DB
	var conversations []Conversation
	err := db.Where("user_id = ?", userId).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	return conversations, nil
}
