package service

import (
	"context"
	"errors"

	"semchat/model"
)

const (
	defaultBackfillLimit = 100
	maxRecordedErrors    = 5
)

type BackfillStore interface {
	GetUnembeddedMessages(userId uint, limit int) ([]model.UnembeddedMessage, error)
	UpsertEmbedding(messageId uint, vector []float32, modelName string) error
	GetUserIdsWithUnembedded() ([]uint, error)
}

type BackfillError struct {
	MessageId uint   `json:"messageId"`
	Error     string `json:"error"`
}

type BackfillResult struct {
	TotalProcessed int             `json:"totalProcessed"`
	SuccessCount   int             `json:"successCount"`
	FailCount      int             `json:"failCount"`
	Errors         []BackfillError `json:"errors"`
}

type SweepSummary struct {
	Users          int
	TotalProcessed int
	SuccessCount   int
	FailCount      int
}

type BackfillService struct {
	embedder Embedder
	store    BackfillStore
}

func NewBackfillService(embedder Embedder, store BackfillStore) *BackfillService {
	return &BackfillService{embedder: embedder, store: store}
}

// Run embeds up to limit of the user's unembedded messages. Items are
// processed one at a time to keep load on the provider bounded; a failed item
// is counted and the job moves on. Earlier successes are never rolled back.
// At most 5 failures are recorded in Errors regardless of how many occurred.
func (s *BackfillService) Run(ctx context.Context, userId uint, limit int) (*BackfillResult, error) {
	if limit <= 0 {
		limit = defaultBackfillLimit
	}

	messages, err := s.store.GetUnembeddedMessages(userId, limit)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{Errors: []BackfillError{}}
	if len(messages) == 0 {
		return result, nil
	}

	for _, message := range messages {
		result.TotalProcessed++
		if err := s.embedOne(ctx, message); err != nil {
			result.FailCount++
			if len(result.Errors) < maxRecordedErrors {
				result.Errors = append(result.Errors, BackfillError{
					MessageId: message.MessageId,
					Error:     err.Error(),
				})
			}
			continue
		}
		result.SuccessCount++
	}

	logger.Infof("[backfill] user %d: processed %d, success %d, fail %d",
		userId, result.TotalProcessed, result.SuccessCount, result.FailCount)
	return result, nil
}

func (s *BackfillService) embedOne(ctx context.Context, message model.UnembeddedMessage) error {
	vector, ok := s.embedder.Generate(ctx, message.Content)
	if !ok {
		return errors.New("embedding generation failed")
	}
	return s.store.UpsertEmbedding(message.MessageId, vector, s.embedder.ModelName())
}

// RunSweep backfills every user that still has unembedded messages. Driven by
// the nightly cron job; per-user failures are logged and skipped.
func (s *BackfillService) RunSweep(ctx context.Context) (*SweepSummary, error) {
	userIds, err := s.store.GetUserIdsWithUnembedded()
	if err != nil {
		return nil, err
	}

	summary := &SweepSummary{}
	for _, userId := range userIds {
		result, err := s.Run(ctx, userId, defaultBackfillLimit)
		if err != nil {
			logger.Warnf("[backfill] sweep for user %d error, %s", userId, err)
			continue
		}
		summary.Users++
		summary.TotalProcessed += result.TotalProcessed
		summary.SuccessCount += result.SuccessCount
		summary.FailCount += result.FailCount
	}
	return summary, nil
}
