package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingChatStore struct {
	upserts   []uint
	upsertErr error
}

func (s *recordingChatStore) UpsertEmbedding(messageId uint, _ []float32, _ string) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, messageId)
	return nil
}

func TestAttachEmbeddingStoresVector(t *testing.T) {
	store := &recordingChatStore{}
	svc := NewChatService(&stubEmbedder{vector: []float32{1, 2, 3}, ok: true, model: "nomic-embed-text"}, store, "")

	svc.attachEmbedding(42, "a long enough message")
	require.Equal(t, []uint{42}, store.upserts)
}

func TestAttachEmbeddingSwallowsGenerationFailure(t *testing.T) {
	store := &recordingChatStore{}
	svc := NewChatService(&stubEmbedder{ok: false}, store, "")

	// Must not panic and must not write anything.
	svc.attachEmbedding(42, "a long enough message")
	require.Empty(t, store.upserts)
}

func TestAttachEmbeddingSwallowsUpsertFailure(t *testing.T) {
	store := &recordingChatStore{upsertErr: errors.New("deadlock")}
	svc := NewChatService(&stubEmbedder{vector: []float32{1}, ok: true}, store, "")

	svc.attachEmbedding(42, "a long enough message")
	require.Empty(t, store.upserts)
}

func TestChatServiceDefaultsModel(t *testing.T) {
	svc := NewChatService(&stubEmbedder{}, &recordingChatStore{}, "")
	require.Equal(t, "qwen-turbo", svc.llmModel)

	svc = NewChatService(&stubEmbedder{}, &recordingChatStore{}, "gpt-4o-mini")
	require.Equal(t, "gpt-4o-mini", svc.llmModel)
}
