// Package guard implements the inbound anti-spam gate: duplicate message
// delivery suppression, a per-user minimum command interval, and a
// per-(user, normalized text) duplicate window, with a periodic sweep that
// bounds all three structures under sustained load.
//
// Unlike the outbound politeness gate, admission never blocks: an event is
// either admitted for routing or rejected silently with a reason that is
// logged and counted but produces no user-visible output.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-card-bot/internal/query"
)

var (
	guardAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_admitted_total",
		Help: "Total number of inbound events admitted for routing.",
	})
	guardRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_rejections_total",
			Help: "Total number of inbound events rejected, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(guardAdmitted, guardRejected)
}

// Reason explains a silent rejection.
type Reason string

// Rejection reasons.
const (
	ReasonDuplicateDelivery Reason = "duplicate_delivery"
	ReasonUserCooldown      Reason = "user_cooldown"
	ReasonDuplicateText     Reason = "duplicate_text"
)

// Config holds the guard windows and bounds.
type Config struct {
	// UserCooldown is the minimum interval between commands per user.
	UserCooldown time.Duration
	// DuplicateWindow suppresses identical normalized text per user.
	DuplicateWindow time.Duration
	// SweepInterval is the cadence of the background cleanup.
	SweepInterval time.Duration
	// Retention is the maximum age of timestamp entries.
	Retention time.Duration
	// ProcessedIDCap triggers truncation of the processed-id set.
	ProcessedIDCap int
	// ProcessedIDKeep is how many of the most recently admitted ids survive
	// a truncation.
	ProcessedIDKeep int
}

// visitor holds one user's command limiter and the last time it was seen,
// so idle entries can be evicted by the sweep.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type textKey struct {
	userID string
	text   string
}

// Guard is the inbound duplicate-suppression gate. All state lives in
// memory; the sweep keeps it bounded. Safe for concurrent use.
type Guard struct {
	cfg Config
	log zerolog.Logger

	mu sync.Mutex
	// users maps user id to their command-interval limiter.
	users map[string]*visitor
	// recent maps (user, normalized text) to the last time it was seen.
	recent map[textKey]time.Time
	// processed is the set of already-handled message ids, with admitted
	// holding the same ids in arrival order. Truncation keeps the tail of
	// admitted, i.e. the most recently admitted ids, not sorted-id order.
	processed map[int64]struct{}
	admitted  []int64
}

// New constructs a Guard, applying defaults for zero-valued settings.
func New(cfg Config) *Guard {
	if cfg.UserCooldown <= 0 {
		cfg.UserCooldown = 3 * time.Second
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 2500 * time.Millisecond
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if cfg.ProcessedIDKeep <= 0 {
		cfg.ProcessedIDKeep = 500
	}
	if cfg.ProcessedIDCap < cfg.ProcessedIDKeep {
		cfg.ProcessedIDCap = 1000
	}
	return &Guard{
		cfg:       cfg,
		log:       log.With().Str("component", "guard").Logger(),
		users:     make(map[string]*visitor),
		recent:    make(map[textKey]time.Time),
		processed: make(map[int64]struct{}),
	}
}

// Admit decides whether the inbound event may be routed. Checks run in
// order: duplicate delivery, per-user cooldown, per-(user, text) duplicate
// window. The cooldown timestamp is consumed even when the text window then
// rejects, mirroring arrival-order evaluation per user.
func (g *Guard) Admit(userID string, messageID int64, rawText string, now time.Time) (bool, Reason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, seen := g.processed[messageID]; seen {
		guardRejected.WithLabelValues(string(ReasonDuplicateDelivery)).Inc()
		return false, ReasonDuplicateDelivery
	}

	v, ok := g.users[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(g.cfg.UserCooldown), 1)}
		g.users[userID] = v
	}
	v.lastSeen = now
	if !v.limiter.AllowN(now, 1) {
		guardRejected.WithLabelValues(string(ReasonUserCooldown)).Inc()
		g.log.Debug().Str("user_id", userID).Msg("rate limited user")
		return false, ReasonUserCooldown
	}

	key := textKey{userID: userID, text: query.Normalize(rawText)}
	if last, seen := g.recent[key]; seen && now.Sub(last) < g.cfg.DuplicateWindow {
		guardRejected.WithLabelValues(string(ReasonDuplicateText)).Inc()
		g.log.Debug().
			Str("user_id", userID).
			Str("content", truncateKey(key.text)).
			Msg("suppressed duplicate command")
		return false, ReasonDuplicateText
	}
	g.recent[key] = now
	g.processed[messageID] = struct{}{}
	g.admitted = append(g.admitted, messageID)

	guardAdmitted.Inc()
	return true, ""
}

// Run executes the periodic sweep until ctx is cancelled. It always returns
// nil on cancellation so shutdown paths stay quiet.
func (g *Guard) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Debug().Msg("guard sweep stopped")
			return nil
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

// sweep evicts timestamp entries older than the retention window and, only
// when the processed-id set exceeds its cap, truncates it to the most
// recently admitted ids.
func (g *Guard) sweep(now time.Time) {
	cutoff := now.Add(-g.cfg.Retention)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, ts := range g.recent {
		if ts.Before(cutoff) {
			delete(g.recent, key)
			removed++
		}
	}
	for id, v := range g.users {
		if v.lastSeen.Before(cutoff) {
			delete(g.users, id)
			removed++
		}
	}

	if len(g.processed) > g.cfg.ProcessedIDCap {
		keep := g.admitted[len(g.admitted)-g.cfg.ProcessedIDKeep:]
		g.admitted = append([]int64(nil), keep...)
		g.processed = make(map[int64]struct{}, len(g.admitted))
		for _, id := range g.admitted {
			g.processed[id] = struct{}{}
		}
	}

	if removed > 0 {
		g.log.Debug().
			Int("entries_removed", removed).
			Int("message_ids_kept", len(g.processed)).
			Msg("cleaned up duplicate suppression state")
	}
}

// truncateKey caps logged command text.
func truncateKey(s string) string {
	if len(s) > 50 {
		return s[:50]
	}
	return s
}
