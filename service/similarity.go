package service

import (
	"math"
	"sort"

	"semchat/model"
)

const (
	similarityThreshold = 0.3
	maxSearchResults    = 50
)

// CosineSimilarity returns the normalized dot product of a and b, in [-1, 1].
// Mismatched lengths, missing vectors and zero magnitudes all yield 0 rather
// than an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankBySimilarity scores every candidate against the query vector, drops
// scores below threshold, sorts descending and truncates to topK. Equal
// scores keep the candidates' input order.
func RankBySimilarity(query []float32, candidates []model.EmbeddedMessage, threshold float64, topK int) []SearchHit {
	hits := make([]SearchHit, 0, len(candidates))
	for _, candidate := range candidates {
		similarity := CosineSimilarity(query, candidate.Vector)
		if similarity < threshold {
			continue
		}
		hits = append(hits, SearchHit{
			Id:                candidate.MessageId,
			ConversationId:    candidate.ConversationId,
			ConversationTitle: candidate.ConversationTitle,
			Role:              candidate.Role,
			Content:           candidate.Content,
			CreatedAt:         candidate.CreatedAt,
			Similarity:        similarity,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
