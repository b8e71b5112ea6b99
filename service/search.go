package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"semchat/model"
)

const (
	SearchTypeSemantic = "semantic"
	SearchTypeKeyword  = "keyword"

	// Placeholder score for keyword hits; no vector comparison happened.
	keywordSimilarity = 0.5
)

var ErrQueryTooShort = errors.New("query must be at least 3 characters")

// Embedder is the slice of EmbeddingService the search and backfill paths
// depend on.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, bool)
	ModelName() string
}

type SearchStore interface {
	GetEmbeddedMessages(userId uint) ([]model.EmbeddedMessage, error)
	SearchMessagesByKeyword(userId uint, query string, limit int) ([]model.MessageHit, error)
}

type SearchHit struct {
	Id                uint      `json:"id"`
	ConversationId    uint      `json:"conversationId"`
	ConversationTitle string    `json:"-"`
	Role              string    `json:"role"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
	Similarity        float64   `json:"similarity"`
}

type ConversationGroup struct {
	ConversationId    uint        `json:"conversationId"`
	ConversationTitle string      `json:"conversationTitle"`
	Messages          []SearchHit `json:"messages"`
}

type SearchResult struct {
	Conversations  []ConversationGroup `json:"conversations"`
	TotalMessages  int                 `json:"totalMessages"`
	SearchType     string              `json:"searchType"`
	EmbeddingModel string              `json:"embeddingModel,omitempty"`
}

type SearchService struct {
	embedder Embedder
	store    SearchStore
}

func NewSearchService(embedder Embedder, store SearchStore) *SearchService {
	return &SearchService{embedder: embedder, store: store}
}

// Search ranks the user's embedded messages against the query and falls back
// to a keyword scan whenever the semantic path cannot produce results: query
// embedding unavailable, no stored vectors, or nothing above the threshold.
func (s *SearchService) Search(ctx context.Context, userId uint, query string) (*SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minEmbeddableLength {
		return nil, ErrQueryTooShort
	}

	queryVector, ok := s.embedder.Generate(ctx, trimmed)
	if !ok {
		return s.keywordSearch(userId, trimmed)
	}

	candidates, err := s.store.GetEmbeddedMessages(userId)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return s.keywordSearch(userId, trimmed)
	}

	hits := RankBySimilarity(queryVector, candidates, similarityThreshold, maxSearchResults)
	if len(hits) == 0 {
		return s.keywordSearch(userId, trimmed)
	}

	return &SearchResult{
		Conversations:  groupByConversation(hits),
		TotalMessages:  len(hits),
		SearchType:     SearchTypeSemantic,
		EmbeddingModel: s.embedder.ModelName(),
	}, nil
}

func (s *SearchService) keywordSearch(userId uint, query string) (*SearchResult, error) {
	rows, err := s.store.SearchMessagesByKeyword(userId, query, maxSearchResults)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, SearchHit{
			Id:                row.MessageId,
			ConversationId:    row.ConversationId,
			ConversationTitle: row.ConversationTitle,
			Role:              row.Role,
			Content:           row.Content,
			CreatedAt:         row.CreatedAt,
			Similarity:        keywordSimilarity,
		})
	}
	return &SearchResult{
		Conversations: groupByConversation(hits),
		TotalMessages: len(hits),
		SearchType:    SearchTypeKeyword,
	}, nil
}

// groupByConversation partitions hits by conversation. A group sits at the
// position its first hit was seen in the already-ordered hit list, and hits
// keep their rank order inside the group; groups are never re-sorted by any
// aggregate score.
func groupByConversation(hits []SearchHit) []ConversationGroup {
	groups := make([]ConversationGroup, 0)
	index := make(map[uint]int)
	for _, hit := range hits {
		i, ok := index[hit.ConversationId]
		if !ok {
			i = len(groups)
			index[hit.ConversationId] = i
			groups = append(groups, ConversationGroup{
				ConversationId:    hit.ConversationId,
				ConversationTitle: hit.ConversationTitle,
			})
		}
		groups[i].Messages = append(groups[i].Messages, hit)
	}
	return groups
}
