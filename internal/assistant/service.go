package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bazarmoz/bazar-backend/internal/catalog"
	"github.com/bazarmoz/bazar-backend/internal/history"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	"github.com/bazarmoz/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/llm"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
	"github.com/bazarmoz/bazar-backend/pkg/metrics"
)

// maxToolRounds bounds the tool-calling loop so a misbehaving model cannot
// spin the request forever.
const maxToolRounds = 3

// Service exposes the LLM-backed storefront flows.
type Service interface {
	Chat(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatReply, error)
	Search(ctx context.Context, req SearchRequest) ([]catalog.DisplayProduct, error)
	Recommendations(ctx context.Context, userID uuid.UUID, req RecommendationsRequest) ([]catalog.DisplayProduct, error)
	Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
}

// ChatRequest carries one user turn of an assistant conversation.
type ChatRequest struct {
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message" validate:"required"`
}

// ChatReply is the assistant's answer plus the thread it landed on.
type ChatReply struct {
	ChatID string `json:"chat_id"`
	Reply  string `json:"reply"`
}

// SearchRequest is a natural-language catalog query.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
}

// RecommendationsRequest carries optional free-text preferences.
type RecommendationsRequest struct {
	Preferences string `json:"preferences,omitempty"`
}

type catalogLister interface {
	DisplayList(ctx context.Context, category string) ([]catalog.DisplayProduct, error)
}

type chatLog interface {
	Append(ctx context.Context, chatID string, sender enums.ChatSender, message string) (*models.ChatMessage, error)
	ListByChat(ctx context.Context, chatID string) ([]models.ChatMessage, error)
}

type historyLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]history.Entry, error)
}

// ServiceParams bundles the dependencies required to build an assistant service.
type ServiceParams struct {
	Completer llm.ChatCompleter
	Catalog   catalogLister
	Chats     chatLog
	History   historyLister
	Metrics   *metrics.CommerceMetrics
	Logger    *logger.Logger
}

type service struct {
	completer llm.ChatCompleter
	catalog   catalogLister
	chats     chatLog
	history   historyLister
	metrics   *metrics.CommerceMetrics
	logg      *logger.Logger
}

// NewService constructs an assistant service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Completer == nil {
		return nil, fmt.Errorf("chat completer is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lister is required")
	}
	if params.Chats == nil {
		return nil, fmt.Errorf("chat log is required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history lister is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		completer: params.Completer,
		catalog:   params.Catalog,
		chats:     params.Chats,
		history:   params.History,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Chat runs one conversational turn, persisting both sides of the exchange.
func (s *service) Chat(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		chatID = uuid.NewString()
	}
	ctx = s.logg.WithChatID(ctx, chatID)

	prior, err := s.chats.ListByChat(ctx, chatID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load chat history")
	}

	messages := make([]llm.Message, 0, len(prior)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	for _, row := range prior {
		role := llm.RoleAssistant
		if row.SenderType == enums.ChatSenderUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: row.Message})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	if _, err := s.chats.Append(ctx, chatID, enums.ChatSenderUser, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store user message")
	}

	reply, err := s.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	if _, err := s.chats.Append(ctx, chatID, enums.ChatSenderAI, reply); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store assistant message")
	}
	s.countRequest("chat")
	return &ChatReply{ChatID: chatID, Reply: reply}, nil
}

// Search maps a free-text query to matching catalog products.
func (s *service) Search(ctx context.Context, req SearchRequest) ([]catalog.DisplayProduct, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: searchSystemPrompt},
		{Role: llm.RoleUser, Content: query},
	}
	reply, err := s.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	products, err := s.productsFromReply(ctx, reply)
	if err != nil {
		return nil, err
	}
	s.countRequest("search")
	return products, nil
}

// Recommendations suggests products based on the user's browsing history.
func (s *service) Recommendations(ctx context.Context, userID uuid.UUID, req RecommendationsRequest) ([]catalog.DisplayProduct, error) {
	entries, err := s.history.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load browsing history")
	}

	var sb strings.Builder
	if len(entries) == 0 {
		sb.WriteString("The customer has not viewed any products yet.")
	} else {
		sb.WriteString("The customer recently viewed: ")
		for i, entry := range entries {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s (id %s, %s MT)", entry.Name, entry.ProductID, entry.Price.StringFixed(2))
		}
		sb.WriteString(".")
	}
	if prefs := strings.TrimSpace(req.Preferences); prefs != "" {
		sb.WriteString(" Stated preferences: ")
		sb.WriteString(prefs)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: recommendationsSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
	reply, err := s.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	products, err := s.productsFromReply(ctx, reply)
	if err != nil {
		return nil, err
	}
	s.countRequest("recommendations")
	return products, nil
}

// Messages returns a thread's stored history, oldest first.
func (s *service) Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat id is required")
	}
	rows, err := s.chats.ListByChat(ctx, chatID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load chat history")
	}
	return rows, nil
}

// complete drives the tool-calling loop until the model produces text.
func (s *service) complete(ctx context.Context, messages []llm.Message) (string, error) {
	tools := []llm.Tool{productTool()}

	for round := 0; round <= maxToolRounds; round++ {
		reply, err := s.completer.ChatCompletion(ctx, messages, tools)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "llm: chat completion")
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		messages = append(messages, *reply)
		for _, call := range reply.ToolCalls {
			if call.Function.Name != toolGetAvailableProducts {
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: call.ID,
					Content:    fmt.Sprintf(`{"error":"unknown tool %s"}`, call.Function.Name),
				})
				continue
			}
			result, err := s.runProductTool(ctx, call.Function.Arguments)
			if err != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tool: list products")
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "llm: tool loop did not converge")
}

// productsFromReply parses the id array the search/recommendation prompts
// demand and resolves it against the catalog. Unknown ids are dropped.
func (s *service) productsFromReply(ctx context.Context, reply string) ([]catalog.DisplayProduct, error) {
	ids, err := parseIDArray(reply)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "llm: malformed product list")
	}

	all, err := s.catalog.DisplayList(ctx, "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	byID := make(map[string]catalog.DisplayProduct, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	out := make([]catalog.DisplayProduct, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// parseIDArray tolerates the model wrapping its JSON in a code fence.
func parseIDArray(reply string) ([]string, error) {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var ids []string
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *service) countRequest(flow string) {
	if s.metrics != nil {
		s.metrics.IncAssistantRequest(flow)
	}
}
