// Client for the upstream card-data API.
//
// Every operation validates its required arguments, acquires the politeness
// gate, issues a single GET, and maps the outcome into the closed error
// taxonomy (errors.go). Response decoding covers the three upstream shapes:
// a single card, a search-result page, and a ruling list.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-card-bot/internal/domain"
)

var (
	// upstreamReqs counts upstream calls by endpoint and result kind.
	upstreamReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scryfall_requests_total",
			Help: "Total number of upstream card API requests.",
		},
		[]string{"endpoint", "result"},
	)

	// upstreamLat records upstream request duration by endpoint.
	upstreamLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scryfall_request_duration_seconds",
			Help:    "Duration of upstream card API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(upstreamReqs, upstreamLat)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the upstream API root, without a trailing slash.
	BaseURL string
	// UserAgent identifies this bot to the upstream service.
	UserAgent string
	// Timeout bounds each HTTP request. Values <= 0 default to 30s.
	Timeout time.Duration
	// GateInterval is the minimum spacing between outbound calls.
	GateInterval time.Duration
}

// Client issues rate-gated requests against the upstream card API.
// It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	gate      *RateGate
	log       zerolog.Logger

	// pick selects an index in [0,n) for the random-among-ties rule in
	// SearchFirst. Injectable for tests.
	pick func(n int) int
}

// New constructs a Client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "go-card-bot/1.0"
	}
	return &Client{
		baseURL:   opts.BaseURL,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		gate:      NewRateGate(opts.GateInterval),
		log:       log.With().Str("component", "scryfall").Logger(),
		pick:      rand.IntN,
	}
}

// CardByName resolves an approximate name to the closest matching card via
// the fuzzy lookup endpoint.
func (c *Client) CardByName(ctx context.Context, name string) (*domain.Card, error) {
	if name == "" {
		return nil, newValidation("card name cannot be empty")
	}
	var card domain.Card
	endpoint := "/cards/named?fuzzy=" + url.QueryEscape(name)
	if err := c.get(ctx, "cards_named", endpoint, &card); err != nil {
		return nil, err
	}
	c.log.Debug().Str("card_name", card.Name).Msg("retrieved card by name")
	return &card, nil
}

// CardByExactName resolves a name by exact match.
func (c *Client) CardByExactName(ctx context.Context, name string) (*domain.Card, error) {
	if name == "" {
		return nil, newValidation("card name cannot be empty")
	}
	var card domain.Card
	endpoint := "/cards/named?exact=" + url.QueryEscape(name)
	if err := c.get(ctx, "cards_named", endpoint, &card); err != nil {
		return nil, err
	}
	c.log.Debug().Str("card_name", card.Name).Msg("retrieved card by exact name")
	return &card, nil
}

// RandomCard fetches a random card. A non-empty query is passed through as a
// server-side filter; selection always happens upstream, never client-side.
func (c *Client) RandomCard(ctx context.Context, query string) (*domain.Card, error) {
	endpoint := "/cards/random"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}
	var card domain.Card
	if err := c.get(ctx, "cards_random", endpoint, &card); err != nil {
		return nil, err
	}
	c.log.Debug().Str("card_name", card.Name).Msg("retrieved random card")
	return &card, nil
}

// Search performs a full-text search. Order and direction are optional; a
// page of 0 requests the server's first page.
func (c *Client) Search(ctx context.Context, query, order, direction string, page int) (*domain.SearchPage, error) {
	if query == "" {
		return nil, newValidation("search query cannot be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	if order != "" {
		params.Set("order", order)
	}
	if direction != "" {
		params.Set("dir", direction)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	var result domain.SearchPage
	if err := c.get(ctx, "cards_search", "/cards/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	c.log.Debug().Str("query", query).Int("results", result.TotalCards).Msg("searched cards")
	return &result, nil
}

// SearchFirst runs Search on the first page and returns one card from it.
//
// When the caller requested no explicit order and the page holds more than
// one card, the candidate is chosen uniformly at random so that repeated
// unordered queries surface variety. With an explicit order the server's own
// ordering is authoritative and the first element is returned. An empty
// result set is a NotFound failure.
func (c *Client) SearchFirst(ctx context.Context, query, order, direction string) (*domain.Card, error) {
	if query == "" {
		return nil, newValidation("search query cannot be empty")
	}
	result, err := c.Search(ctx, query, order, direction, 0)
	if err != nil {
		return nil, err
	}
	if result.TotalCards == 0 || len(result.Data) == 0 {
		return nil, newNotFound("no cards found matching query")
	}
	card := result.Data[0]
	if order == "" && len(result.Data) > 1 {
		card = result.Data[c.pick(len(result.Data))]
		c.log.Debug().
			Str("card_name", card.Name).
			Int("candidate_count", len(result.Data)).
			Msg("selected random card from search results")
	}
	return &card, nil
}

// Rulings fetches the official rulings for a card by its upstream id.
func (c *Client) Rulings(ctx context.Context, cardID string) ([]domain.Ruling, error) {
	if cardID == "" {
		return nil, newValidation("card id cannot be empty")
	}
	var list domain.RulingList
	if err := c.get(ctx, "cards_rulings", "/cards/"+url.PathEscape(cardID)+"/rulings", &list); err != nil {
		return nil, err
	}
	c.log.Debug().Str("card_id", cardID).Int("ruling_count", len(list.Data)).Msg("retrieved card rulings")
	return list.Data, nil
}

// get acquires the gate, issues one GET, maps failures into the taxonomy,
// and decodes a successful body into out.
func (c *Client) get(ctx context.Context, name, endpoint string, out any) error {
	if err := c.gate.Acquire(ctx); err != nil {
		upstreamReqs.WithLabelValues(name, string(KindNetwork)).Inc()
		return newNetwork(err.Error())
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		upstreamReqs.WithLabelValues(name, string(KindValidation)).Inc()
		return newValidation(err.Error())
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		upstreamReqs.WithLabelValues(name, string(KindNetwork)).Inc()
		c.log.Error().Str("endpoint", endpoint).Err(err).Msg("upstream request failed")
		return newNetwork(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()
	upstreamLat.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		serr := c.decodeError(resp)
		upstreamReqs.WithLabelValues(name, string(serr.Kind)).Inc()
		c.log.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("kind", string(serr.Kind)).
			Msg("upstream request rejected")
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		upstreamReqs.WithLabelValues(name, string(KindAPI)).Inc()
		return &Error{Kind: KindAPI, Message: "malformed upstream response", Status: resp.StatusCode}
	}
	upstreamReqs.WithLabelValues(name, "ok").Inc()
	return nil
}

// decodeError parses the upstream error envelope; when the body itself does
// not parse, the raw HTTP status still drives the taxonomy mapping.
func (c *Client) decodeError(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var eb apiErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Object == "" {
		// Unparsable error body: still an API failure carrying the raw status.
		return &Error{Kind: KindAPI, Message: fmt.Sprintf("HTTP error %d", resp.StatusCode), Status: resp.StatusCode}
	}
	return eb.toError(resp.StatusCode)
}
