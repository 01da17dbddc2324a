// Package handlers – message endpoint
//
// This file implements the inbound event endpoint used by the chat-platform
// collaborator. Each POST carries one message event; the handler hands it to
// the dispatcher and translates the structured outcome into an HTTP response.
// Suppressed events answer 202 so the collaborator can distinguish "received
// but deliberately dropped" from success without treating it as a failure.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-card-bot/internal/bot"
	"github.com/tbourn/go-card-bot/internal/domain"
	"github.com/tbourn/go-card-bot/internal/scryfall"
	"github.com/tbourn/go-card-bot/internal/services"
	"github.com/tbourn/go-card-bot/internal/sysutil"
)

// MessageRequest is one inbound chat event.
type MessageRequest struct {
	AuthorID    string `json:"author_id" binding:"required"`
	AuthorIsBot bool   `json:"author_is_bot"`
	MessageID   int64  `json:"message_id" binding:"required"`
	Text        string `json:"text" binding:"required"`
}

// ResolvedItemView is the JSON shape of one batch item; the error is
// flattened to text.
type ResolvedItemView struct {
	Query        string       `json:"query"`
	Card         *domain.Card `json:"card,omitempty"`
	UsedFallback bool         `json:"used_fallback,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// MessageResponse is the dispatcher outcome rendered for the collaborator.
// ImageFilename is the attachment name the collaborator should use when it
// re-uploads the card image to the chat platform.
type MessageResponse struct {
	Kind          string               `json:"kind"`
	Reason        string               `json:"reason,omitempty"`
	Card          *domain.Card         `json:"card,omitempty"`
	UsedFallback  bool                 `json:"used_fallback,omitempty"`
	ImageFilename string               `json:"image_filename,omitempty"`
	Items         []ResolvedItemView   `json:"items,omitempty"`
	Groups        [][]ResolvedItemView `json:"groups,omitempty"`
	Rulings       []domain.Ruling      `json:"rulings,omitempty"`
	Message       string               `json:"message,omitempty"`
}

// MessageHandler exposes the dispatcher over HTTP.
type MessageHandler struct {
	Bot *bot.Dispatcher
}

// HandleMessage processes one inbound chat event.
// POST /api/v1/messages
func (h *MessageHandler) HandleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	out := h.Bot.Dispatch(c.Request.Context(), bot.Event{
		AuthorID:    req.AuthorID,
		AuthorIsBot: req.AuthorIsBot,
		MessageID:   req.MessageID,
		Text:        req.Text,
		Now:         time.Now(),
	})

	switch out.Kind {
	case bot.KindIgnored:
		noContent(c)
	case bot.KindSuppressed:
		ok(c, http.StatusAccepted, MessageResponse{Kind: string(out.Kind), Reason: string(out.Reason)})
	case bot.KindCard:
		ok(c, http.StatusOK, MessageResponse{
			Kind:          string(out.Kind),
			Card:          out.Card,
			UsedFallback:  out.UsedFallback,
			ImageFilename: imageFilename(out.Card),
		})
	case bot.KindBatch:
		items := itemViews(out.Items)
		ok(c, http.StatusOK, MessageResponse{
			Kind:   string(out.Kind),
			Items:  items,
			Groups: groupViews(out.Items),
		})
	case bot.KindRulings:
		ok(c, http.StatusOK, MessageResponse{Kind: string(out.Kind), Card: out.Card, Rulings: out.Rulings})
	case bot.KindHelp:
		ok(c, http.StatusOK, MessageResponse{Kind: string(out.Kind), Message: out.Message})
	default:
		status, code := statusForError(out.Err)
		resp := ErrorResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      code,
			Message:   out.Message,
		}
		if len(out.Items) > 0 {
			c.AbortWithStatusJSON(status, gin.H{
				"request_id": resp.RequestID,
				"code":       resp.Code,
				"message":    resp.Message,
				"items":      itemViews(out.Items),
			})
			return
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

// imageFilename builds the attachment name for a card image, empty when the
// card carries no image.
func imageFilename(card *domain.Card) string {
	if card == nil || !card.HasImage() {
		return ""
	}
	return sysutil.SafeFilename(card.DisplayName()) + ".png"
}

// itemViews flattens batch items for JSON rendering.
func itemViews(items []domain.ResolvedItem) []ResolvedItemView {
	views := make([]ResolvedItemView, 0, len(items))
	for _, it := range items {
		views = append(views, ResolvedItemView{
			Query:        it.Query,
			Card:         it.Card,
			UsedFallback: it.UsedFallback,
			Error:        it.ErrorText(),
		})
	}
	return views
}

// groupViews partitions batch items into the fixed presentation groups.
func groupViews(items []domain.ResolvedItem) [][]ResolvedItemView {
	var groups [][]ResolvedItemView
	for _, g := range services.Chunk(items, services.ChunkSize) {
		groups = append(groups, itemViews(g))
	}
	return groups
}

// statusForError maps service and client failures to an HTTP status and a
// stable error code.
func statusForError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrEmptyQuery), errors.Is(err, services.ErrNoQueries):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrNoneResolved):
		return http.StatusNotFound, ErrCodeNoneResolved
	}
	switch scryfall.KindOf(err) {
	case scryfall.KindValidation:
		return http.StatusBadRequest, ErrCodeBadRequest
	case scryfall.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case scryfall.KindRateLimit:
		return http.StatusTooManyRequests, ErrCodeRateLimited
	case scryfall.KindNetwork:
		return http.StatusBadGateway, ErrCodeUpstream
	default:
		return http.StatusBadGateway, ErrCodeUpstream
	}
}
