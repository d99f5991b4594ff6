package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const maxSuggestions = 10

// listMarker matches a leading bullet or "1." / "2)" numbering.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// geminiSuggester asks a Gemini model for items and falls back to another
// Suggester when the model fails or returns nothing usable.
type geminiSuggester struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	fallback Suggester
}

// NewGeminiSuggester creates a Suggester backed by the Gemini API.
func NewGeminiSuggester(ctx context.Context, apiKey, model string, fallback Suggester) (Suggester, func() error, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	return &geminiSuggester{client: client, model: m, fallback: fallback}, client.Close, nil
}

func (g *geminiSuggester) Suggest(ctx context.Context, query string) ([]string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(suggestionPrompt(query)))
	if err != nil {
		slog.Warn("gemini suggestion failed, using fallback", "error", err)
		return g.fallback.Suggest(ctx, query)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
				sb.WriteString("\n")
			}
		}
		break
	}

	items := parseSuggestions(sb.String())
	if len(items) == 0 {
		return g.fallback.Suggest(ctx, query)
	}
	return items, nil
}

func suggestionPrompt(query string) string {
	return fmt.Sprintf("Suggest up to %d shopping list items for: %q. "+
		"Answer with one item per line and nothing else.", maxSuggestions, query)
}

// parseSuggestions turns a model answer into item names, stripping list
// markers and numbering and dropping duplicates.
func parseSuggestions(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ',' }) {
		item := strings.TrimSpace(line)
		item = listMarker.ReplaceAllString(item, "")
		item = strings.Trim(item, "*_` ")
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
