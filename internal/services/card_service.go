// Package services – CardService
//
// This file implements CardService, the component that owns single-query
// resolution. It decides between a direct fuzzy name lookup and a filtered
// search, applies the name-only salvage retry after a failed filtered search,
// and validates the resulting card before it can reach presentation. It also
// fronts the random-card and rulings operations.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the query text and the chosen resolution path.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-card-bot/internal/domain"
	"github.com/tbourn/go-card-bot/internal/query"
	"github.com/tbourn/go-card-bot/internal/scryfall"
)

// CardClient defines the upstream contract required by CardService.
// *scryfall.Client satisfies it; tests substitute fakes.
type CardClient interface {
	// CardByName resolves an approximate name via fuzzy lookup.
	CardByName(ctx context.Context, name string) (*domain.Card, error)

	// CardByExactName resolves a name by exact match.
	CardByExactName(ctx context.Context, name string) (*domain.Card, error)

	// RandomCard fetches a random card, optionally constrained by a query.
	RandomCard(ctx context.Context, query string) (*domain.Card, error)

	// SearchFirst runs a first-page search and returns one card from it.
	SearchFirst(ctx context.Context, query, order, direction string) (*domain.Card, error)

	// Rulings fetches the official rulings for a card id.
	Rulings(ctx context.Context, cardID string) ([]domain.Ruling, error)
}

// CardService resolves individual card queries against the upstream client.
type CardService struct {
	// Client is the upstream card API client.
	Client CardClient
}

// NewCardService constructs a CardService backed by client.
func NewCardService(client CardClient) *CardService {
	return &CardService{Client: client}
}

// Resolve turns one raw query into a validated card. The reported bool is
// true when the name-only salvage path produced the card.
//
// Queries carrying an order hint or recognized filter syntax go through
// search; on any failure there, a bare name of at least two characters
// recovered from the same text is retried as a plain fuzzy lookup. Plain
// queries go straight to fuzzy lookup with no fallback branch. A card that
// comes back absent or structurally invalid fails as not-found regardless of
// what the upstream call reported.
func (s *CardService) Resolve(ctx context.Context, rawQuery string) (*domain.Card, bool, error) {
	tr := otel.Tracer("services/CardService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("card.query", rawQuery)),
	)
	defer span.End()

	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		return nil, false, ErrEmptyQuery
	}

	parsed := query.ExtractSortParameters(rawQuery)
	searchQuery := parsed.Cleaned
	if searchQuery == "" {
		searchQuery = rawQuery
	}

	// A direction alone does not select the search path; an order hint or
	// recognized filter syntax does.
	hasFilters := parsed.Order != "" || query.HasFilterParameters(searchQuery)
	span.SetAttributes(attribute.Bool("card.filtered", hasFilters))

	var (
		card         *domain.Card
		usedFallback bool
		err          error
	)
	if hasFilters {
		card, err = s.Client.SearchFirst(ctx, searchQuery, parsed.Order, parsed.Direction)
		if err != nil {
			name := strings.TrimSpace(query.ExtractCardName(searchQuery))
			if len(name) < 2 {
				return nil, false, err
			}
			card, err = s.Client.CardByName(ctx, name)
			if err != nil {
				return nil, false, err
			}
			usedFallback = true
		}
	} else {
		card, err = s.Client.CardByName(ctx, searchQuery)
		if err != nil {
			return nil, false, err
		}
	}

	if card == nil || !card.IsValid() {
		return nil, false, &scryfall.Error{Kind: scryfall.KindNotFound, Message: "no valid card found for query"}
	}
	span.SetAttributes(
		attribute.String("card.name", card.DisplayName()),
		attribute.Bool("card.fallback", usedFallback),
	)
	return card, usedFallback, nil
}

// Random fetches a random card, with an optional filter query passed through
// to the upstream random endpoint.
func (s *CardService) Random(ctx context.Context, filter string) (*domain.Card, error) {
	tr := otel.Tracer("services/CardService")
	ctx, span := tr.Start(ctx, "Random",
		trace.WithAttributes(attribute.String("card.filter", filter)),
	)
	defer span.End()

	card, err := s.Client.RandomCard(ctx, strings.TrimSpace(filter))
	if err != nil {
		return nil, err
	}
	if card == nil || !card.IsValid() {
		return nil, &scryfall.Error{Kind: scryfall.KindNotFound, Message: "no valid card found"}
	}
	return card, nil
}

// RulingsByName resolves a card name and fetches its rulings, returning the
// resolved card alongside so callers can label the output.
func (s *CardService) RulingsByName(ctx context.Context, name string) (*domain.Card, []domain.Ruling, error) {
	tr := otel.Tracer("services/CardService")
	ctx, span := tr.Start(ctx, "RulingsByName",
		trace.WithAttributes(attribute.String("card.query", name)),
	)
	defer span.End()

	card, _, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	rulings, err := s.Client.Rulings(ctx, card.ID)
	if err != nil {
		return nil, nil, err
	}
	return card, rulings, nil
}

// RulingsByID fetches rulings for a known upstream card id.
func (s *CardService) RulingsByID(ctx context.Context, cardID string) ([]domain.Ruling, error) {
	tr := otel.Tracer("services/CardService")
	ctx, span := tr.Start(ctx, "RulingsByID",
		trace.WithAttributes(attribute.String("card.id", cardID)),
	)
	defer span.End()

	return s.Client.Rulings(ctx, cardID)
}
