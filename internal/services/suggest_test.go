package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "three questions",
			text: "What made you smile today?||Which memory would you relive?||What scares you most?",
			want: []string{
				"What made you smile today?",
				"Which memory would you relive?",
				"What scares you most?",
			},
		},
		{
			name: "whitespace around delimiters",
			text: "First one || Second one ||  Third one ",
			want: []string{"First one", "Second one", "Third one"},
		},
		{
			name: "trailing delimiter",
			text: "Only one||",
			want: []string{"Only one"},
		},
		{
			name: "no delimiter at all",
			text: "A single question without separators",
			want: []string{"A single question without separators"},
		},
		{
			name: "empty response",
			text: "",
			want: []string{},
		},
		{
			name: "only delimiters",
			text: "||||",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSuggestions(tt.text))
		})
	}
}
