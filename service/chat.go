package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"semchat/model"
	"semchat/platform"
)

const historyWindow = 20

type ChatStore interface {
	UpsertEmbedding(messageId uint, vector []float32, modelName string) error
}

type ChatService struct {
	embedder Embedder
	store    ChatStore
	llmModel string
}

func NewChatService(embedder Embedder, store ChatStore, llmModel string) *ChatService {
	if llmModel == "" {
		llmModel = "qwen-turbo"
	}
	return &ChatService{embedder: embedder, store: store, llmModel: llmModel}
}

// SendMessage persists the user message, asks the LLM for a reply, persists
// the reply, then launches one detached embedding task per message. The
// caller gets both messages back before any embedding work happens; upsert
// idempotency is the only mechanism if the tasks race with a retry.
func (s *ChatService) SendMessage(ctx context.Context, userId uint, conversationId uint, content string) (*model.Conversation, []model.Message, error) {
	var conversation *model.Conversation
	var err error
	if conversationId == 0 {
		conversation = &model.Conversation{UserId: userId, Title: conversationTitle(content)}
		if err := model.CreateConversation(conversation); err != nil {
			return nil, nil, err
		}
	} else {
		conversation, err = model.GetConversation(userId, conversationId)
		if err != nil {
			return nil, nil, err
		}
	}

	userMessage := &model.Message{
		ConversationId: conversation.ID,
		Role:           model.MessageRoleUser,
		Content:        content,
	}
	if err := model.CreateMessage(userMessage); err != nil {
		return nil, nil, err
	}

	reply, err := s.generateReply(ctx, userId, conversation.ID)
	if err != nil {
		return nil, nil, err
	}

	aiMessage := &model.Message{
		ConversationId: conversation.ID,
		Role:           model.MessageRoleAssistant,
		Content:        reply,
		Model:          s.llmModel,
	}
	if err := model.CreateMessage(aiMessage); err != nil {
		return nil, nil, err
	}

	// Detached: the response goes out without waiting for either task.
	go s.attachEmbedding(userMessage.ID, userMessage.Content)
	go s.attachEmbedding(aiMessage.ID, aiMessage.Content)

	return conversation, []model.Message{*userMessage, *aiMessage}, nil
}

// attachEmbedding generates and stores the vector for one saved message. Runs
// in its own goroutine; failures end here with a log line and nowhere else.
func (s *ChatService) attachEmbedding(messageId uint, content string) {
	vector, ok := s.embedder.Generate(context.Background(), content)
	if !ok {
		logger.Warnf("[chat] embedding generation failed for message %d", messageId)
		return
	}
	if err := s.store.UpsertEmbedding(messageId, vector, s.embedder.ModelName()); err != nil {
		logger.Warnf("[chat] embedding upsert failed for message %d, %s", messageId, err)
	}
}

func (s *ChatService) generateReply(ctx context.Context, userId uint, conversationId uint) (string, error) {
	history, err := model.GetMessageList(userId, conversationId)
	if err != nil {
		return "", err
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:    openai.F(s.llmModel),
	}
	var systemContent any = "You are a helpful assistant."
	params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
		Role:    openai.F(openai.ChatCompletionMessageParamRoleSystem),
		Content: openai.F(systemContent),
	})
	for _, message := range history {
		var content any = message.Content
		params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
			Role:    openai.F(openai.ChatCompletionMessageParamRole(message.Role)),
			Content: openai.F(content),
		})
	}

	completion, err := platform.LLMClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func conversationTitle(content string) string {
	runes := []rune(content)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return content
}
