package boardview

import (
	"sort"
	"strings"

	"github.com/localnerve/retroboard/internal/models"
)

// Filter narrows and orders the cards of a column for display
type Filter struct {
	// Search matches card content case-insensitively
	Search string
	// AuthorID keeps the non anonymous cards of one author
	AuthorID string
	// ByVotes orders by votes, most first; ties keep their position order
	ByVotes bool
}

// Visible returns the cards of a column that pass f, top to bottom
func (c *Controller) Visible(columnID string, f Filter) []models.Card {
	c.mu.Lock()
	var cards []models.Card
	for _, card := range c.cards {
		if card.ColumnID == columnID {
			cards = append(cards, card)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := cards[:0]
	for _, card := range cards {
		if search != "" && !strings.Contains(strings.ToLower(card.Content), search) {
			continue
		}
		if f.AuthorID != "" && (card.IsAnonymous || card.AuthorID != f.AuthorID) {
			continue
		}
		out = append(out, card)
	}

	if f.ByVotes {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	}
	return out
}
