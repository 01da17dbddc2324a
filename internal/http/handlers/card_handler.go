// Package handlers – card endpoints
//
// This file implements the direct card endpoints: a random card pull with an
// optional filter query, and rulings lookup by upstream card id. Both are
// thin wrappers over CardService; failures are translated once via
// statusForError.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-card-bot/internal/services"
)

// CardHandler exposes CardService operations over HTTP.
type CardHandler struct {
	Svc *services.CardService
}

// RandomCard fetches a random card. The optional q parameter is passed
// through to the upstream random endpoint as a filter.
// GET /api/v1/cards/random?q=<filter>
func (h *CardHandler) RandomCard(c *gin.Context) {
	card, err := h.Svc.Random(c.Request.Context(), c.Query("q"))
	if err != nil {
		status, code := statusForError(err)
		fail(c, status, code, "could not fetch a random card")
		return
	}
	ok(c, http.StatusOK, card)
}

// Rulings fetches the official rulings for a card by upstream id.
// GET /api/v1/cards/:id/rulings
func (h *CardHandler) Rulings(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "card id is required")
		return
	}
	rulings, err := h.Svc.RulingsByID(c.Request.Context(), id)
	if err != nil {
		status, code := statusForError(err)
		fail(c, status, code, "could not fetch rulings")
		return
	}
	ok(c, http.StatusOK, gin.H{"card_id": id, "rulings": rulings})
}
