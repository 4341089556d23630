package cartstatus

import (
	"math"
	"strings"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// CategoryProgress reports coverage of one planning category.
type CategoryProgress struct {
	Category string `json:"category"`
	Covered  bool   `json:"covered"`
	Items    int    `json:"items"`
}

// ProgressView is the category completion of one wedding.
type ProgressView struct {
	Categories []CategoryProgress `json:"categories"`
	Covered    int                `json:"covered"`
	Total      int                `json:"total"`
	Percent    int                `json:"percent"`
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Progress counts a category as covered when at least one item carries it.
// Category names match case-insensitively; blank and repeated categories
// are ignored.
func Progress(categories []string, items []types.CartItem) ProgressView {
	counts := map[string]int{}
	for _, item := range items {
		if key := normalizeCategory(item.Category); key != "" {
			counts[key]++
		}
	}

	view := ProgressView{Categories: []CategoryProgress{}}
	seen := map[string]bool{}
	for _, category := range categories {
		key := normalizeCategory(category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		n := counts[key]
		view.Categories = append(view.Categories, CategoryProgress{
			Category: strings.TrimSpace(category),
			Covered:  n > 0,
			Items:    n,
		})
		if n > 0 {
			view.Covered++
		}
	}
	view.Total = len(view.Categories)
	view.Percent = percent(view.Covered, view.Total)
	return view
}

// CompletionPercent is covered/total x 100 rounded to the nearest integer
// and capped at 100. No categories means 0.
func CompletionPercent(categories []string, items []types.CartItem) int {
	return Progress(categories, items).Percent
}

func percent(covered, total int) int {
	if total <= 0 || covered <= 0 {
		return 0
	}
	p := int(math.Round(float64(covered) * 100 / float64(total)))
	if p > 100 {
		return 100
	}
	return p
}

// Breakdown counts items per status. Every status is present, zero or not.
func Breakdown(items []types.CartItem) map[enums.CartItemStatus]int {
	out := make(map[enums.CartItemStatus]int, 4)
	for _, status := range enums.CartItemStatuses() {
		out[status] = 0
	}
	for _, item := range items {
		if item.Status.IsValid() {
			out[item.Status]++
		}
	}
	return out
}
