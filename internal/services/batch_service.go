// Package services – BatchService
//
// This file implements BatchService, which splits semicolon-delimited input
// into independent queries and resolves each through CardService. Items are
// resolved sequentially so the shared outbound gate keeps the upstream
// request rate bounded and predictable; one item's failure never aborts the
// rest.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-card-bot/internal/domain"
)

// ChunkSize is the fixed presentation group size for batch results.
const ChunkSize = 4

// BatchService resolves semicolon-delimited multi-card queries.
type BatchService struct {
	// Cards performs the per-item resolution.
	Cards *CardService
}

// NewBatchService constructs a BatchService on top of cards.
func NewBatchService(cards *CardService) *BatchService {
	return &BatchService{Cards: cards}
}

// Split breaks raw input on semicolons, trims each piece, and drops pieces
// that are empty after trimming.
func Split(raw string) []string {
	parts := strings.Split(raw, ";")
	queries := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			queries = append(queries, p)
		}
	}
	return queries
}

// Resolve splits raw input and resolves each query in order, capturing
// per-item success or failure. Zero usable queries is ErrNoQueries. A single
// query is not a batch: it delegates to the single-query path and that
// outcome, card or error, is returned unchanged as a one-element result.
// When every item of a real batch fails, the returned error is
// ErrNoneResolved and the items still carry their individual errors.
func (s *BatchService) Resolve(ctx context.Context, raw string) ([]domain.ResolvedItem, error) {
	tr := otel.Tracer("services/BatchService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("batch.raw", raw)),
	)
	defer span.End()

	queries := Split(raw)
	span.SetAttributes(attribute.Int("batch.size", len(queries)))
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	if len(queries) == 1 {
		card, usedFallback, err := s.Cards.Resolve(ctx, queries[0])
		return []domain.ResolvedItem{{Query: queries[0], Card: card, UsedFallback: usedFallback, Err: err}}, err
	}

	items := make([]domain.ResolvedItem, 0, len(queries))
	successes := 0
	for _, q := range queries {
		card, usedFallback, err := s.Cards.Resolve(ctx, q)
		item := domain.ResolvedItem{Query: q, Card: card, UsedFallback: usedFallback, Err: err}
		if item.Resolved() {
			successes++
		}
		items = append(items, item)
	}
	span.SetAttributes(attribute.Int("batch.resolved", successes))

	if successes == 0 {
		return items, ErrNoneResolved
	}
	return items, nil
}

// Chunk partitions items into fixed-size groups for presentation, preserving
// order. The final group may be shorter.
func Chunk(items []domain.ResolvedItem, size int) [][]domain.ResolvedItem {
	if size <= 0 {
		size = ChunkSize
	}
	var groups [][]domain.ResolvedItem
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end])
	}
	return groups
}
