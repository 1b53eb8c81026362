package model

import (
	"fmt"
	"sort"
	"time"
)

// ExtractedItem is one labeled span of a normalized filing document
type ExtractedItem struct {
	Key     string `json:"key"`     // Output key, e.g. "item_5.02" or "signature"
	Label   string `json:"label"`   // Catalog label, e.g. "5.02" or "SIGNATURE"
	Content string `json:"content"` // Cleaned section text (never empty)
	Start   int    `json:"start"`   // Byte offset of the header in the normalized document
	End     int    `json:"end"`     // Byte offset where the next section begins

	Filing *Filing `json:"-"` // Back-link only; the item never owns the filing
}

// State is a step of a single filing's pipeline run
type State string

const (
	StatePending       State = "PENDING"
	StateIndexResolved State = "INDEX_RESOLVED"
	StateFetched       State = "FETCHED"
	StateNormalized    State = "NORMALIZED"
	StateSegmented     State = "SEGMENTED"
	StateFailed        State = "FAILED"
)

var stateTransitions = map[State][]State{
	StatePending:       {StateIndexResolved},
	StateIndexResolved: {StateFetched, StateFailed},
	StateFetched:       {StateNormalized, StateFailed},
	StateNormalized:    {StateSegmented},
}

// CanTransition reports whether next is reachable from s in one step
func (s State) CanTransition(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateSegmented || s == StateFailed
}

// FilingResult is the outcome of running one filing through the pipeline
type FilingResult struct {
	RunID         string                   `json:"run_id"`
	Filing        Filing                   `json:"filing"`
	IndexURL      string                   `json:"index_url"`
	DocumentURL   string                   `json:"document_url"`
	UsedFallback  bool                     `json:"used_fallback"`
	State         State                    `json:"state"`
	History       []State                  `json:"history"`
	Items         map[string]ExtractedItem `json:"items"`
	Exhibits      map[string]string        `json:"exhibits,omitempty"`
	TablesDropped int                      `json:"tables_dropped"`
	CharCount     int                      `json:"char_count"`
	StartedAt     time.Time                `json:"started_at"`
	Duration      time.Duration            `json:"duration_ns"`
	Error         string                   `json:"error,omitempty"`
}

// NewFilingResult starts a result in the pending state
func NewFilingResult(runID string, filing Filing) *FilingResult {
	return &FilingResult{
		RunID:     runID,
		Filing:    filing,
		State:     StatePending,
		History:   []State{StatePending},
		Items:     map[string]ExtractedItem{},
		StartedAt: time.Now().UTC(),
	}
}

// Advance moves the result to the next state, rejecting illegal transitions
func (r *FilingResult) Advance(next State) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("illegal state transition %s -> %s", r.State, next)
	}
	r.State = next
	r.History = append(r.History, next)
	return nil
}

// Contents returns the downstream contract: item key to plain text
func (r *FilingResult) Contents() map[string]string {
	out := make(map[string]string, len(r.Items))
	for key, item := range r.Items {
		out[key] = item.Content
	}
	return out
}

// OrderedItems returns items sorted by start offset
func (r *FilingResult) OrderedItems() []ExtractedItem {
	return SortItems(r.Items)
}

// SortItems flattens an item map into document order
func SortItems(items map[string]ExtractedItem) []ExtractedItem {
	ordered := make([]ExtractedItem, 0, len(items))
	for _, item := range items {
		ordered = append(ordered, item)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})
	return ordered
}
