package domain

// ResolvedItem is the outcome of resolving one sub-query within a batch.
// Either Card is set (possibly via the name-lookup fallback) or Err explains
// why the item failed; a failed item never aborts the rest of the batch.
type ResolvedItem struct {
	Query        string `json:"query"`
	Card         *Card  `json:"card,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
	Err          error  `json:"-"`
}

// Resolved reports whether the item carries a valid card.
func (r *ResolvedItem) Resolved() bool {
	return r.Err == nil && r.Card.IsValid()
}

// ErrorText returns the item's error message, or "" when it resolved.
func (r *ResolvedItem) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
