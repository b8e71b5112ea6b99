package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"semchat/platform"
)

// Embedding holds the vector for a single message. At most one row per
// message; regenerating overwrites the row in place. Rows are removed together
// with their message.
type Embedding struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageId uint      `gorm:"uniqueIndex;not null" json:"message_id"`
	Message   Message   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Vector    string    `gorm:"type:longtext" json:"-"`
	Model     string    `gorm:"type:varchar(128)" json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageHit is one message row joined with its owning conversation.
type MessageHit struct {
	MessageId         uint
	ConversationId    uint
	ConversationTitle string
	Role              string
	Content           string
	CreatedAt         time.Time
}

// EmbeddedMessage is a MessageHit plus its decoded vector.
type EmbeddedMessage struct {
	MessageHit
	Vector []float32
}

type UnembeddedMessage struct {
	MessageId uint
	Content   string
}

type EmbeddingStats struct {
	TotalMessages    int64            `json:"totalMessages"`
	EmbeddedMessages int64            `json:"embeddedMessages"`
	CoveragePercent  float64          `json:"coveragePercent"`
	ByModel          map[string]int64 `json:"byModel"`
}

func EncodeVector(vector []float32) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("failed to encode vector: %w", err)
	}
	return string(data), nil
}

func DecodeVector(data string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("decoded vector is empty")
	}
	return vector, nil
}

// EmbeddingStore wraps the embedding persistence queries so services can
// consume it behind narrow interfaces.
type EmbeddingStore struct{}

// UpsertEmbedding writes the vector for messageId, overwriting any existing
// row. Safe to call repeatedly for the same message; last write wins.
func (EmbeddingStore) UpsertEmbedding(messageId uint, vector []float32, modelName string) error {
	data, err := EncodeVector(vector)
	if err != nil {
		return err
	}

	db := platform.DB
	embedding := Embedding{
		MessageId: messageId,
		Vector:    data,
		Model:     modelName,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vector", "model", "updated_at"}),
	}).Create(&embedding).Error
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for message %d: %w", messageId, err)
	}
	return nil
}

type embeddedMessageRow struct {
	MessageId         uint
	ConversationId    uint
	ConversationTitle string
	Role              string
	Content           string
	CreatedAt         time.Time
	Vector            string
}

// GetEmbeddedMessages returns every message of the user that has a stored
// embedding. Rows whose stored vector fails to decode are skipped with a
// warning instead of failing the whole fetch.
func (EmbeddingStore) GetEmbeddedMessages(userId uint) ([]EmbeddedMessage, error) {
	db := platform.DB
	var rows []embeddedMessageRow
	err := db.Table("messages").
		Select("messages.id AS message_id, messages.conversation_id, conversations.title AS conversation_title, messages.role, messages.content, messages.created_at, embeddings.vector").
		Joins("JOIN embeddings ON embeddings.message_id = messages.id").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userId).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embedded messages: %w", err)
	}

	messages := make([]EmbeddedMessage, 0, len(rows))
	for _, row := range rows {
		vector, err := DecodeVector(row.Vector)
		if err != nil {
			platform.Logger.Warnf("[store] skipping corrupt vector for message %d, %s", row.MessageId, err)
			continue
		}
		messages = append(messages, EmbeddedMessage{
			MessageHit: MessageHit{
				MessageId:         row.MessageId,
				ConversationId:    row.ConversationId,
				ConversationTitle: row.ConversationTitle,
				Role:              row.Role,
				Content:           row.Content,
				CreatedAt:         row.CreatedAt,
			},
			Vector: vector,
		})
	}
	return messages, nil
}

// GetUnembeddedMessages returns up to limit messages of the user that have no
// embedding yet and are long enough to embed, newest first.
func (EmbeddingStore) GetUnembeddedMessages(userId uint, limit int) ([]UnembeddedMessage, error) {
	db := platform.DB
	var rows []UnembeddedMessage
	err := db.Table("messages").
		Select("messages.id AS message_id, messages.content").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Joins("LEFT JOIN embeddings ON embeddings.message_id = messages.id").
		Where("conversations.user_id = ? AND embeddings.id IS NULL AND CHAR_LENGTH(TRIM(messages.content)) >= 3", userId).
		Order("messages.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unembedded messages: %w", err)
	}
	return rows, nil
}

// SearchMessagesByKeyword does a case-insensitive substring scan over the
// user's messages, newest first.
func (EmbeddingStore) SearchMessagesByKeyword(userId uint, query string, limit int) ([]MessageHit, error) {
	db := platform.DB
	pattern := "%" + strings.ToLower(query) + "%"
	var rows []MessageHit
	err := db.Table("messages").
		Select("messages.id AS message_id, messages.conversation_id, conversations.title AS conversation_title, messages.role, messages.content, messages.created_at").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ? AND LOWER(messages.content) LIKE ?", userId, pattern).
		Order("messages.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return rows, nil
}

type modelCountRow struct {
	Model string
	Count int64
}

// GetEmbeddingStats returns message/embedding counts and the per-model
// breakdown for the user. Read-only.
func (EmbeddingStore) GetEmbeddingStats(userId uint) (*EmbeddingStats, error) {
	db := platform.DB

	var total int64
	err := db.Table("messages").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userId).
		Count(&total).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var embedded int64
	err = db.Table("messages").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Joins("JOIN embeddings ON embeddings.message_id = messages.id").
		Where("conversations.user_id = ?", userId).
		Count(&embedded).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count embedded messages: %w", err)
	}

	var byModel []modelCountRow
	err = db.Table("embeddings").
		Select("embeddings.model AS model, COUNT(*) AS count").
		Joins("JOIN messages ON messages.id = embeddings.message_id").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userId).
		Group("embeddings.model").
		Scan(&byModel).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings by model: %w", err)
	}

	stats := &EmbeddingStats{
		TotalMessages:    total,
		EmbeddedMessages: embedded,
		ByModel:          make(map[string]int64, len(byModel)),
	}
	if total > 0 {
		stats.CoveragePercent = math.Round(float64(embedded)/float64(total)*10000) / 100
	}
	for _, row := range byModel {
		stats.ByModel[row.Model] = row.Count
	}
	return stats, nil
}

// GetUserIdsWithUnembedded lists users that still have embeddable messages
// without a vector. Drives the nightly backfill sweep.
func (EmbeddingStore) GetUserIdsWithUnembedded() ([]uint, error) {
	db := platform.DB
	var userIds []uint
	err := db.Table("messages").
		Distinct().
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Joins("LEFT JOIN embeddings ON embeddings.message_id = messages.id").
		Where("embeddings.id IS NULL AND CHAR_LENGTH(TRIM(messages.content)) >= 3").
		Pluck("conversations.user_id", &userIds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users with unembedded messages: %w", err)
	}
	return userIds, nil
}
