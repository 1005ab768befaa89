package handlers

import (
	"context"
	"net/http"

	"github.com/murmurapp/murmur-backend/internal/services"
)

// Suggester is the slice of the suggestion service this handler uses.
type Suggester interface {
	Suggest(ctx context.Context) (*services.Suggestions, error)
}

// SuggestHandler asks the generative-text provider for message prompts.
type SuggestHandler struct {
	suggestions Suggester
}

func NewSuggestHandler(suggestions Suggester) *SuggestHandler {
	return &SuggestHandler{suggestions: suggestions}
}

type suggestResponse struct {
	apiResponse
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	result, err := h.suggestions.Suggest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestResponse{
		apiResponse: apiResponse{Success: true},
		Text:        result.Text,
		Suggestions: result.Items,
	})
}
