package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"semchat/model"
)

func TestCosineSimilarityBasics(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}

	require.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	require.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))

	opposite := []float32{-1, -2, -3}
	require.InDelta(t, -1.0, CosineSimilarity(a, opposite), 1e-9)

	orthogonal := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.InDelta(t, 0.0, orthogonal, 1e-9)
}

func TestCosineSimilarityRange(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.9, -0.4},
		{-3, 2, 7},
		{1, 1, 1},
		{0.001, -0.002, 0.003},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got := CosineSimilarity(a, b)
			require.GreaterOrEqual(t, got, -1.0-1e-9)
			require.LessOrEqual(t, got, 1.0+1e-9)
			require.Equal(t, got, CosineSimilarity(b, a))
		}
	}
}

func TestCosineSimilarityDegenerateCases(t *testing.T) {
	require.Equal(t, 0.0, CosineSimilarity(nil, []float32{1, 2}))
	require.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, nil))
	require.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	require.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	require.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{0, 0}))
}

func candidate(id uint, conversationId uint, vector []float32) model.EmbeddedMessage {
	return model.EmbeddedMessage{
		MessageHit: model.MessageHit{
			MessageId:      id,
			ConversationId: conversationId,
			Content:        "message",
			Role:           model.MessageRoleUser,
			CreatedAt:      time.Now(),
		},
		Vector: vector,
	}
}

func TestRankBySimilarityThresholdAndOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddedMessage{
		candidate(1, 1, []float32{0, 1}),    // similarity 0
		candidate(2, 1, []float32{1, 0}),    // similarity 1
		candidate(3, 2, []float32{1, 1}),    // similarity ~0.707
		candidate(4, 2, []float32{0.1, 1}),  // below threshold
		candidate(5, 3, []float32{1, 2, 3}), // length mismatch, similarity 0
	}

	hits := RankBySimilarity(query, candidates, 0.3, 50)
	require.Len(t, hits, 2)
	require.Equal(t, uint(2), hits[0].Id)
	require.Equal(t, uint(3), hits[1].Id)
	for _, hit := range hits {
		require.GreaterOrEqual(t, hit.Similarity, 0.3)
	}
}

func TestRankBySimilarityTopK(t *testing.T) {
	query := []float32{1, 0}
	var candidates []model.EmbeddedMessage
	for i := uint(1); i <= 10; i++ {
		candidates = append(candidates, candidate(i, 1, []float32{1, 0}))
	}

	hits := RankBySimilarity(query, candidates, 0.3, 3)
	require.Len(t, hits, 3)
}

func TestRankBySimilarityTiesKeepInputOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddedMessage{
		candidate(7, 1, []float32{2, 0}),
		candidate(3, 1, []float32{1, 0}),
		candidate(9, 2, []float32{5, 0}),
	}

	hits := RankBySimilarity(query, candidates, 0.3, 50)
	require.Equal(t, []uint{7, 3, 9}, []uint{hits[0].Id, hits[1].Id, hits[2].Id})
}
