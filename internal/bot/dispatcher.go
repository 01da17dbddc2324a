// Package bot routes admitted inbound chat events to the card services.
//
// The dispatcher owns addressing (bracket syntax or command prefix), the
// duplicate guard check, command aliasing, and the translation of service
// failures into user-facing text. Formatting beyond plain text and delivery
// to the chat platform are the caller's responsibility; the dispatcher only
// returns a structured Outcome.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-card-bot/internal/domain"
	"github.com/tbourn/go-card-bot/internal/guard"
	"github.com/tbourn/go-card-bot/internal/query"
	"github.com/tbourn/go-card-bot/internal/scryfall"
	"github.com/tbourn/go-card-bot/internal/services"
)

// Event is one inbound chat message as delivered by the platform collaborator.
type Event struct {
	AuthorID    string
	AuthorIsBot bool
	MessageID   int64
	Text        string
	Now         time.Time
}

// OutcomeKind labels what the dispatcher did with an event.
type OutcomeKind string

// Outcome kinds.
const (
	KindIgnored    OutcomeKind = "ignored"
	KindSuppressed OutcomeKind = "suppressed"
	KindCard       OutcomeKind = "card"
	KindBatch      OutcomeKind = "batch"
	KindRulings    OutcomeKind = "rulings"
	KindHelp       OutcomeKind = "help"
	KindError      OutcomeKind = "error"
)

// Outcome is the dispatcher's structured result for one event. Message holds
// user-facing text for help and error outcomes; Err carries the underlying
// failure for logging and transport mapping.
type Outcome struct {
	Kind         OutcomeKind
	Reason       guard.Reason
	Card         *domain.Card
	UsedFallback bool
	Items        []domain.ResolvedItem
	Rulings      []domain.Ruling
	Message      string
	Err          error
}

// Recorder persists one audit row per dispatched lookup. Recording is
// best-effort; failures are logged and never affect the outcome.
type Recorder interface {
	RecordLookup(ctx context.Context, userID, command, q, cardName, outcome string) error
}

// Dispatcher wires the guard, the card services, and the audit recorder.
type Dispatcher struct {
	Prefix  string
	Guard   *guard.Guard
	Cards   *services.CardService
	Batches *services.BatchService
	Lookups Recorder

	log zerolog.Logger
}

// New constructs a Dispatcher. Lookups may be nil to disable auditing.
func New(prefix string, g *guard.Guard, cards *services.CardService, batches *services.BatchService, rec Recorder) *Dispatcher {
	return &Dispatcher{
		Prefix:  prefix,
		Guard:   g,
		Cards:   cards,
		Batches: batches,
		Lookups: rec,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch processes one inbound event end to end: addressing, guard
// admission, command routing, resolution, and audit recording.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Outcome {
	if ev.AuthorIsBot {
		return Outcome{Kind: KindIgnored}
	}

	content := query.BracketContent(ev.Text)
	if content == "" {
		if !strings.HasPrefix(ev.Text, d.Prefix) {
			return Outcome{Kind: KindIgnored}
		}
		content = ev.Text[len(d.Prefix):]
	}

	now := ev.Now
	if now.IsZero() {
		now = time.Now()
	}
	if ok, reason := d.Guard.Admit(ev.AuthorID, ev.MessageID, content, now); !ok {
		return Outcome{Kind: KindSuppressed, Reason: reason}
	}

	if strings.Contains(content, ";") {
		return d.handleBatch(ctx, ev, content)
	}

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return Outcome{Kind: KindIgnored}
	}
	command, args := strings.ToLower(parts[0]), parts[1:]

	switch command {
	case "random", "rand", "r":
		return d.handleRandom(ctx, ev, strings.Join(args, " "))
	case "help", "h", "?":
		return Outcome{Kind: KindHelp, Message: d.helpText()}
	case "rules":
		if len(args) == 0 {
			return Outcome{Kind: KindError, Message: "Please provide a card name for rules lookup."}
		}
		return d.handleRules(ctx, ev, strings.Join(args, " "))
	default:
		return d.handleLookup(ctx, ev, strings.Join(parts, " "))
	}
}

func (d *Dispatcher) handleLookup(ctx context.Context, ev Event, cardQuery string) Outcome {
	card, usedFallback, err := d.Cards.Resolve(ctx, cardQuery)
	if err != nil {
		d.log.Error().Str("user_id", ev.AuthorID).Str("card_query", cardQuery).Err(err).Msg("card lookup failed")
		d.record(ctx, ev, "lookup", cardQuery, "", "error:"+string(scryfall.KindOf(err)))

		var msg string
		switch {
		case scryfall.IsNotFound(err):
			if query.HasFilterParameters(cardQuery) {
				msg = fmt.Sprintf("No cards found for '%s'. Try simpler filters like `e:set` or `is:foil`, or check the spelling.", cardQuery)
			} else {
				msg = fmt.Sprintf("Card '%s' not found. Try partial names like 'bolt' for 'Lightning Bolt'.", cardQuery)
			}
		case scryfall.IsRateLimit(err):
			msg = "API rate limit exceeded. Please try again in a moment."
		default:
			msg = "Sorry, something went wrong while searching for that card."
		}
		return Outcome{Kind: KindError, Message: msg, Err: err}
	}

	outcome := "resolved"
	if usedFallback {
		outcome = "fallback"
	}
	d.record(ctx, ev, "lookup", cardQuery, card.DisplayName(), outcome)
	return Outcome{Kind: KindCard, Card: card, UsedFallback: usedFallback}
}

func (d *Dispatcher) handleBatch(ctx context.Context, ev Event, raw string) Outcome {
	// A lone query with stray semicolons is not a batch; it gets the
	// single-lookup outcome and error messages.
	if queries := services.Split(raw); len(queries) == 1 {
		return d.handleLookup(ctx, ev, queries[0])
	}

	items, err := d.Batches.Resolve(ctx, raw)
	switch {
	case err == services.ErrNoQueries:
		return Outcome{Kind: KindError, Message: "No valid card queries provided.", Err: err}
	case err == services.ErrNoneResolved:
		d.record(ctx, ev, "batch", raw, "", "error:none_resolved")
		return Outcome{Kind: KindError, Items: items, Message: "Failed to resolve any requested cards.", Err: err}
	}

	resolved := 0
	for _, it := range items {
		if it.Resolved() {
			resolved++
		}
	}
	d.log.Info().Str("user_id", ev.AuthorID).Int("query_count", len(items)).Int("resolved", resolved).Msg("multi-card lookup")
	d.record(ctx, ev, "batch", raw, "", fmt.Sprintf("resolved:%d/%d", resolved, len(items)))
	return Outcome{Kind: KindBatch, Items: items}
}

func (d *Dispatcher) handleRandom(ctx context.Context, ev Event, filter string) Outcome {
	card, err := d.Cards.Random(ctx, filter)
	if err != nil {
		d.record(ctx, ev, "random", filter, "", "error:"+string(scryfall.KindOf(err)))

		msg := "Sorry, something went wrong while fetching a random card."
		if scryfall.IsNotFound(err) && filter != "" {
			msg = fmt.Sprintf("No cards found matching filters: '%s'. Try broader criteria.", filter)
		}
		return Outcome{Kind: KindError, Message: msg, Err: err}
	}
	d.record(ctx, ev, "random", filter, card.DisplayName(), "resolved")
	return Outcome{Kind: KindCard, Card: card}
}

func (d *Dispatcher) handleRules(ctx context.Context, ev Event, cardQuery string) Outcome {
	card, rulings, err := d.Cards.RulingsByName(ctx, cardQuery)
	if err != nil {
		d.record(ctx, ev, "rules", cardQuery, "", "error:"+string(scryfall.KindOf(err)))

		msg := "Sorry, something went wrong while looking up rules for that card."
		if scryfall.IsNotFound(err) {
			msg = fmt.Sprintf("Card '%s' not found for rules lookup.", cardQuery)
		}
		return Outcome{Kind: KindError, Message: msg, Err: err}
	}
	d.record(ctx, ev, "rules", cardQuery, card.DisplayName(), "resolved")
	return Outcome{Kind: KindRulings, Card: card, Rulings: rulings}
}

// record writes one audit row, logging and swallowing any failure.
func (d *Dispatcher) record(ctx context.Context, ev Event, command, q, cardName, outcome string) {
	if d.Lookups == nil {
		return
	}
	if err := d.Lookups.RecordLookup(ctx, ev.AuthorID, command, q, cardName, outcome); err != nil {
		d.log.Warn().Err(err).Msg("failed to record lookup")
	}
}

// helpText builds the plain-text command reference shown for the help command.
func (d *Dispatcher) helpText() string {
	p := d.Prefix
	return strings.Join([]string{
		"Card lookup commands:",
		fmt.Sprintf("`%slightning bolt` - single-card lookup", p),
		fmt.Sprintf("`%srules counterspell` - official rulings", p),
		fmt.Sprintf("`%srandom` - pull a random card (supports filters)", p),
		"",
		"Search filters: `e:`, `set:`, `rarity:`, `is:foil`, `cn:` and friends.",
		fmt.Sprintf("Sorting: `order:` and `dir:`, e.g. `%scultivate order:edhrec dir:desc`", p),
		"",
		"Multi-card lookup (semicolon-separated):",
		fmt.Sprintf("`%sbolt; counterspell; doom blade`", p),
		fmt.Sprintf("`%ssol ring e:lea; mox ruby e:lea`", p),
		"",
		"You can also use `[[card name]]` anywhere in a message.",
		fmt.Sprintf("Aliases: `%sr`, `%srand`, `%sh`, `%s?`", p, p, p, p),
	}, "\n")
}
