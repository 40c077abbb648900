package cart

import (
	"sort"

	"github.com/phuocduongts/storefront/internal/models"
)

// Selection is the set of line item ids the user means to buy now.
// The zero value is not usable; call NewSelection.
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection(ids ...int64) *Selection {
	s := &Selection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Selection) Contains(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Select(id int64) {
	s.ids[id] = struct{}{}
}

func (s *Selection) Deselect(id int64) {
	delete(s.ids, id)
}

// Toggle flips id and reports whether it is selected afterwards.
func (s *Selection) Toggle(id int64) bool {
	if s.Contains(id) {
		s.Deselect(id)
		return false
	}
	s.Select(id)
	return true
}

// SelectAll replaces the selection with every item's id.
func (s *Selection) SelectAll(items []models.LineItem) {
	s.ids = make(map[int64]struct{}, len(items))
	for _, it := range items {
		s.ids[it.ID] = struct{}{}
	}
}

// Retain drops ids whose line item is no longer in items.
func (s *Selection) Retain(items []models.LineItem) {
	present := make(map[int64]struct{}, len(items))
	for _, it := range items {
		present[it.ID] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// AllSelected reports whether items is non-empty and every item is selected.
func (s *Selection) AllSelected(items []models.LineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !s.Contains(it.ID) {
			return false
		}
	}
	return true
}

// Items returns the selected items in cart order.
func (s *Selection) Items(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, s.Len())
	for _, it := range items {
		if s.Contains(it.ID) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, s.Len())
	if s == nil {
		return out
	}
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
