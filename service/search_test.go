package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"semchat/model"
)

type stubEmbedder struct {
	vector []float32
	ok     bool
	model  string
	calls  int
}

func (s *stubEmbedder) Generate(_ context.Context, _ string) ([]float32, bool) {
	s.calls++
	return s.vector, s.ok
}

func (s *stubEmbedder) ModelName() string {
	return s.model
}

type stubSearchStore struct {
	embedded     []model.EmbeddedMessage
	embeddedErr  error
	keyword      []model.MessageHit
	keywordErr   error
	keywordCalls int
}

func (s *stubSearchStore) GetEmbeddedMessages(_ uint) ([]model.EmbeddedMessage, error) {
	return s.embedded, s.embeddedErr
}

func (s *stubSearchStore) SearchMessagesByKeyword(_ uint, _ string, _ int) ([]model.MessageHit, error) {
	s.keywordCalls++
	return s.keyword, s.keywordErr
}

func embeddedMessage(id uint, conversationId uint, title string, vector []float32) model.EmbeddedMessage {
	return model.EmbeddedMessage{
		MessageHit: model.MessageHit{
			MessageId:         id,
			ConversationId:    conversationId,
			ConversationTitle: title,
			Role:              model.MessageRoleUser,
			Content:           "stored message",
			CreatedAt:         time.Now(),
		},
		Vector: vector,
	}
}

func TestSearchRejectsShortQueryBeforeProviderCall(t *testing.T) {
	embedder := &stubEmbedder{}
	svc := NewSearchService(embedder, &stubSearchStore{})

	for _, query := range []string{"", "ab", "  a  ", "\t\n"} {
		_, err := svc.Search(context.Background(), 1, query)
		require.ErrorIs(t, err, ErrQueryTooShort)
	}
	require.Equal(t, 0, embedder.calls)
}

func TestSearchFallsBackWhenEmbeddingUnavailable(t *testing.T) {
	store := &stubSearchStore{
		keyword: []model.MessageHit{
			{MessageId: 1, ConversationId: 10, ConversationTitle: "first", Content: "database performance", CreatedAt: time.Now()},
		},
	}
	svc := NewSearchService(&stubEmbedder{ok: false}, store)

	result, err := svc.Search(context.Background(), 1, "database performance")
	require.NoError(t, err)
	require.Equal(t, SearchTypeKeyword, result.SearchType)
	require.Empty(t, result.EmbeddingModel)
	require.Equal(t, 1, result.TotalMessages)
	require.Equal(t, 0.5, result.Conversations[0].Messages[0].Similarity)
}

func TestSearchFallsBackWhenNoStoredEmbeddings(t *testing.T) {
	store := &stubSearchStore{}
	svc := NewSearchService(&stubEmbedder{vector: []float32{1, 0}, ok: true}, store)

	result, err := svc.Search(context.Background(), 1, "anything at all")
	require.NoError(t, err)
	require.Equal(t, SearchTypeKeyword, result.SearchType)
	require.Equal(t, 1, store.keywordCalls)
	require.Equal(t, 0, result.TotalMessages)
	require.Empty(t, result.Conversations)
}

func TestSearchFallsBackWhenNothingAboveThreshold(t *testing.T) {
	store := &stubSearchStore{
		embedded: []model.EmbeddedMessage{
			embeddedMessage(1, 10, "first", []float32{0, 1}),
		},
		keyword: []model.MessageHit{
			{MessageId: 1, ConversationId: 10, ConversationTitle: "first", Content: "hello there"},
		},
	}
	svc := NewSearchService(&stubEmbedder{vector: []float32{1, 0}, ok: true}, store)

	result, err := svc.Search(context.Background(), 1, "hello there")
	require.NoError(t, err)
	require.Equal(t, SearchTypeKeyword, result.SearchType)
}

func TestSearchSemanticRankingAndGrouping(t *testing.T) {
	// Conversation 20's best hit outranks everything in conversation 10, so
	// its group must come first even though conversation 10 has more hits.
	store := &stubSearchStore{
		embedded: []model.EmbeddedMessage{
			embeddedMessage(1, 10, "alpha", []float32{0.7, 0.7}),
			embeddedMessage(2, 20, "beta", []float32{1, 0}),
			embeddedMessage(3, 10, "alpha", []float32{0.9, 0.3}),
			embeddedMessage(4, 30, "gamma", []float32{0.1, 1}), // below threshold
		},
	}
	svc := NewSearchService(&stubEmbedder{vector: []float32{1, 0}, ok: true, model: "nomic-embed-text"}, store)

	result, err := svc.Search(context.Background(), 1, "database performance")
	require.NoError(t, err)
	require.Equal(t, SearchTypeSemantic, result.SearchType)
	require.Equal(t, "nomic-embed-text", result.EmbeddingModel)
	require.Equal(t, 3, result.TotalMessages)

	require.Len(t, result.Conversations, 2)
	require.Equal(t, uint(20), result.Conversations[0].ConversationId)
	require.Equal(t, "beta", result.Conversations[0].ConversationTitle)
	require.Equal(t, uint(10), result.Conversations[1].ConversationId)
	require.Len(t, result.Conversations[1].Messages, 2)

	// Hits inside a group keep rank order.
	group := result.Conversations[1]
	require.Greater(t, group.Messages[0].Similarity, group.Messages[1].Similarity)
	for _, conversation := range result.Conversations {
		for _, hit := range conversation.Messages {
			require.GreaterOrEqual(t, hit.Similarity, 0.3)
		}
	}
}

func TestSearchPropagatesStoreError(t *testing.T) {
	store := &stubSearchStore{embeddedErr: errors.New("connection refused")}
	svc := NewSearchService(&stubEmbedder{vector: []float32{1, 0}, ok: true}, store)

	_, err := svc.Search(context.Background(), 1, "database performance")
	require.Error(t, err)
}

func TestGroupByConversationInsertionOrder(t *testing.T) {
	hits := []SearchHit{
		{Id: 1, ConversationId: 2, ConversationTitle: "b", Similarity: 0.9},
		{Id: 2, ConversationId: 1, ConversationTitle: "a", Similarity: 0.8},
		{Id: 3, ConversationId: 2, ConversationTitle: "b", Similarity: 0.7},
		{Id: 4, ConversationId: 3, ConversationTitle: "c", Similarity: 0.6},
	}

	groups := groupByConversation(hits)
	require.Len(t, groups, 3)
	require.Equal(t, uint(2), groups[0].ConversationId)
	require.Equal(t, uint(1), groups[1].ConversationId)
	require.Equal(t, uint(3), groups[2].ConversationId)
	require.Equal(t, []uint{1, 3}, []uint{groups[0].Messages[0].Id, groups[0].Messages[1].Id})
}
