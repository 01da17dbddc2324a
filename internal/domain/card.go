// Package domain defines the core data model for the card bot: the normalized
// card record decoded from the upstream card API, search pages, rulings, and
// the per-query resolution outcome handed to downstream presentation.
//
// The upstream payload is loosely typed JSON; every field the rest of the
// system relies on is mapped here with a defined zero value so downstream
// logic never branches on "key missing" versus "key present but empty".
package domain

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ObjectCard is the record type tag the upstream API uses for card payloads.
const ObjectCard = "card"

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Object     string            `json:"object"`
	Name       string            `json:"name"`
	ManaCost   string            `json:"mana_cost"`
	TypeLine   string            `json:"type_line"`
	OracleText string            `json:"oracle_text"`
	Colors     []string          `json:"colors"`
	Artist     string            `json:"artist"`
	ImageURIs  map[string]string `json:"image_uris"`
}

// Card is the normalized card record. It is constructed once per successful
// fetch at the deserialization boundary and treated as immutable afterwards.
type Card struct {
	Object       string            `json:"object"`
	ID           string            `json:"id"`
	OracleID     string            `json:"oracle_id"`
	Name         string            `json:"name"`
	Lang         string            `json:"lang"`
	ReleasedAt   string            `json:"released_at"`
	URI          string            `json:"uri"`
	ScryfallURI  string            `json:"scryfall_uri"`
	Layout       string            `json:"layout"`
	ImageURIs    map[string]string `json:"image_uris"`
	CardFaces    []CardFace        `json:"card_faces"`
	ManaCost     string            `json:"mana_cost"`
	CMC          float64           `json:"cmc"`
	TypeLine     string            `json:"type_line"`
	OracleText   string            `json:"oracle_text"`
	Colors       []string          `json:"colors"`
	SetName      string            `json:"set_name"`
	SetCode      string            `json:"set"`
	Rarity       string            `json:"rarity"`
	Artist       string            `json:"artist"`
	Prices       map[string]string `json:"prices"`
	Legalities   map[string]string `json:"legalities"`
	ImageStatus  string            `json:"image_status"`
	HighresImage bool              `json:"highres_image"`
}

// SearchPage is one page of search results, consumed immediately by the
// resolver.
type SearchPage struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page"`
	Data       []Card `json:"data"`
}

// Ruling is a single official ruling attached to a card.
type Ruling struct {
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Comment     string `json:"comment"`
}

// RulingList is the upstream envelope for a card's rulings.
type RulingList struct {
	Data []Ruling `json:"data"`
}

// IsValid reports whether the card has enough data for display: the record
// type tag must be "card" and it must carry a name or at least one face.
func (c *Card) IsValid() bool {
	if c == nil {
		return false
	}
	return c.Object == ObjectCard && (c.Name != "" || len(c.CardFaces) > 0)
}

// DisplayName returns the card name, joining face names with " // " for
// multi-faced cards that lack a combined name.
func (c *Card) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.CardFaces) > 0 {
		names := make([]string, 0, len(c.CardFaces))
		for _, f := range c.CardFaces {
			names = append(names, f.Name)
		}
		return strings.Join(names, " // ")
	}
	return "Unknown Card"
}

// imagePreference orders image formats from highest to lowest quality.
var imagePreference = []string{"png", "large", "normal", "small"}

// BestImageURL returns the highest quality image URL available. For
// multi-faced cards the first face's images are preferred.
func (c *Card) BestImageURL() string {
	uris := c.ImageURIs
	if len(c.CardFaces) > 0 && len(c.CardFaces[0].ImageURIs) > 0 {
		uris = c.CardFaces[0].ImageURIs
	}
	if len(uris) == 0 {
		return ""
	}
	for _, format := range imagePreference {
		if u, ok := uris[format]; ok && u != "" {
			return u
		}
	}
	// Any image beats none when no preferred format exists.
	for _, u := range uris {
		if u != "" {
			return u
		}
	}
	return ""
}

// HasImage reports whether at least one image is available.
func (c *Card) HasImage() bool { return c.BestImageURL() != "" }

// PriceDisplay returns a formatted price string: USD first, then USD foil,
// then EUR, then MTGO tickets. Empty when no parseable price exists.
func (c *Card) PriceDisplay() string {
	if len(c.Prices) == 0 {
		return ""
	}
	if v, ok := parsePrice(c.Prices["usd"]); ok {
		return fmt.Sprintf("$%.2f", v)
	}
	if v, ok := parsePrice(c.Prices["usd_foil"]); ok {
		return fmt.Sprintf("$%.2f (foil)", v)
	}
	if v, ok := parsePrice(c.Prices["eur"]); ok {
		return fmt.Sprintf("€%.2f", v)
	}
	if v, ok := parsePrice(c.Prices["tix"]); ok {
		return fmt.Sprintf("%.2f tix", v)
	}
	return ""
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// legalityFormats lists the formats surfaced in legality summaries, in
// display order.
var legalityFormats = []string{
	"standard", "pioneer", "modern", "legacy", "vintage", "commander",
	"oathbreaker", "brawl", "historic", "pauper", "penny", "duel",
}

var titleCaser = cases.Title(language.English)

// LegalitySummary returns a comma-separated list of formats the card is
// legal in, or a fixed fallback when it is legal nowhere that matters.
func (c *Card) LegalitySummary() string {
	if len(c.Legalities) == 0 {
		return ""
	}
	legal := make([]string, 0, len(legalityFormats))
	for _, f := range legalityFormats {
		if c.Legalities[f] == "legal" {
			legal = append(legal, titleCaser.String(f))
		}
	}
	if len(legal) == 0 {
		return "Not legal in any major formats"
	}
	return strings.Join(legal, ", ")
}

// RarityDisplay returns the rarity in title case for presentation.
func (c *Card) RarityDisplay() string {
	return titleCaser.String(strings.ToLower(c.Rarity))
}

// rarityColors maps rarities to embed accent colors.
var rarityColors = map[string]int{
	"mythic":   0xFF8C00,
	"rare":     0xFFD700,
	"uncommon": 0xC0C0C0,
	"common":   0x000000,
	"special":  0xFF1493,
	"bonus":    0x9370DB,
}

// RarityColor returns the accent color for the card's rarity, defaulting to
// purple for unknown rarities.
func (c *Card) RarityColor() int {
	if col, ok := rarityColors[strings.ToLower(c.Rarity)]; ok {
		return col
	}
	return 0x9B59B6
}
