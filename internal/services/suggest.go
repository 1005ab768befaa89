package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/config"
)

// SuggestionDelimiter separates individual suggestions in the provider's
// response text.
const SuggestionDelimiter = "||"

const suggestionPrompt = `Generate 3 unique, creative, and engaging conversation starters for an anonymous messaging platform.

Context: People use this to send anonymous feedback, questions, or thoughts to each other. The questions should encourage meaningful, positive interactions.

Requirements:
- Each question must be completely different from typical Q&A formats
- Vary the question types: some introspective, some creative, some about experiences
- Make them thought-provoking but accessible to all ages
- Avoid generic questions about hobbies, skills, or instruments
- Focus on unique angles that spark genuine curiosity
- Keep each question under 15 words

Format: Separate each question with '||' (no spaces around the separators)

Timestamp: %s
Seed: %d

Generate fresh, unique questions now:`

// Suggestions is one provider response: the raw text plus the split items.
type Suggestions struct {
	Text  string   `json:"text"`
	Items []string `json:"suggestions"`
}

// SuggestionService asks a generative-text provider for message prompts.
type SuggestionService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewSuggestionService(cfg config.AIConfig) *SuggestionService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &SuggestionService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		now:    time.Now,
	}
}

// Suggest makes a single completion call; no retries, a failed attempt is
// surfaced to the caller.
func (s *SuggestionService) Suggest(ctx context.Context) (*Suggestions, error) {
	// Timestamp and seed keep repeated calls from collapsing onto the
	// provider's favorite three questions.
	prompt := fmt.Sprintf(suggestionPrompt, s.now().UTC().Format(time.RFC3339), rand.Intn(1000000))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   300,
		Temperature: 0.9,
		TopP:        0.95,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &apperr.Error{
				Kind:    apperr.DependencyFailure,
				Message: fmt.Sprintf("AI service error: %s", apiErr.Message),
				Status:  apiErr.HTTPStatusCode,
				Err:     err,
			}
		}
		return nil, apperr.Wrap(apperr.DependencyFailure, "AI service unreachable", err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperr.E(apperr.DependencyFailure, "AI service returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return &Suggestions{Text: text, Items: ParseSuggestions(text)}, nil
}

// ParseSuggestions splits the provider response on the literal "||"
// delimiter, trimming whitespace and dropping empty entries.
func ParseSuggestions(text string) []string {
	parts := strings.Split(text, SuggestionDelimiter)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}
