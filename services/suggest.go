package services

import (
	"context"
	"strings"
)

// Suggester proposes shopping items for a free-text query such as a dish
// or an occasion.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

type keywordSet struct {
	keyword string
	items   []string
}

var cannedSuggestions = []keywordSet{
	{"borscht", []string{"Beets", "Cabbage", "Potatoes", "Carrots", "Beef", "Onions", "Tomato Paste"}},
	{"electronics", []string{"Laptop", "Headphones", "Smartphone", "Charger", "Mouse"}},
	{"household", []string{"Detergent", "Dish Soap", "Paper Towels", "Trash Bags", "Sponges"}},
}

var defaultSuggestions = []string{"Milk", "Bread", "Eggs", "Cheese", "Apples", "Chicken"}

// KeywordSuggester answers from a fixed keyword table.
type KeywordSuggester struct{}

func (KeywordSuggester) Suggest(_ context.Context, query string) ([]string, error) {
	q := strings.ToLower(query)
	for _, set := range cannedSuggestions {
		if strings.Contains(q, set.keyword) {
			return append([]string(nil), set.items...), nil
		}
	}
	return append([]string(nil), defaultSuggestions...), nil
}
