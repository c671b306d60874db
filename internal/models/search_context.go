package models

import (
	"encoding/json"
)

// SearchContext is the multi-turn search state for one phone. It is
// overwritten on every fresh search and merged on continuations; stale
// contexts are harmless and simply superseded.
type SearchContext struct {
	Must          []string          `json:"must"`
	Should        []string          `json:"should"`
	Negate        []string          `json:"negate"`
	LastQuery     string            `json:"last_query"`
	LastSimilares []ProductSummary  `json:"last_similares"`
	LastShownIDs  []uint            `json:"last_shown_ids"`
	Signals       map[string]string `json:"signals"` // species/form/brand hints
	Asked         []string          `json:"asked"`   // clarification axes already posed
	Hops          int               `json:"hops"`    // disambiguation rounds so far
	FailCount     int               `json:"fail_count"`
}

// NewSearchContext returns an empty context ready for a fresh search.
func NewSearchContext() *SearchContext {
	return &SearchContext{Signals: make(map[string]string)}
}

// Shown reports whether a product id was already offered this search.
func (sc *SearchContext) Shown(id uint) bool {
	for _, seen := range sc.LastShownIDs {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkShown records product ids offered to the user, deduplicated.
func (sc *SearchContext) MarkShown(ids ...uint) {
	for _, id := range ids {
		if !sc.Shown(id) {
			sc.LastShownIDs = append(sc.LastShownIDs, id)
		}
	}
}

// Search decodes the stored search context, or nil when none is set.
func (s *Session) Search() *SearchContext {
	if s.SearchJSON == nil || *s.SearchJSON == "" {
		return nil
	}
	var sc SearchContext
	if err := json.Unmarshal([]byte(*s.SearchJSON), &sc); err != nil {
		return nil
	}
	if sc.Signals == nil {
		sc.Signals = make(map[string]string)
	}
	return &sc
}

// EncodeSearch serializes a search context for storage.
func EncodeSearch(sc *SearchContext) (*string, error) {
	if sc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(sc)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}
