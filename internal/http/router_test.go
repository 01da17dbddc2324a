package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-card-bot/internal/bot"
	"github.com/tbourn/go-card-bot/internal/config"
	"github.com/tbourn/go-card-bot/internal/guard"
	"github.com/tbourn/go-card-bot/internal/repo"
	"github.com/tbourn/go-card-bot/internal/scryfall"
	"github.com/tbourn/go-card-bot/internal/services"
)

// fakeUpstream serves minimal card API payloads for the full-stack tests.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cards/named", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("fuzzy")
		if name == "" {
			name = r.URL.Query().Get("exact")
		}
		if name == "missingno" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"object":"error","code":"not_found","status":404,"details":"no card"}`))
			return
		}
		w.Write([]byte(`{"object":"card","id":"id-1","name":"Lightning Bolt"}`))
	})
	mux.HandleFunc("/cards/random", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"card","id":"id-2","name":"Sliver Queen"}`))
	})
	mux.HandleFunc("/cards/id-1/rulings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"source":"wotc","published_at":"2004-10-04","comment":"It resolves."}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	upstream := fakeUpstream(t)
	client := scryfall.New(scryfall.Options{
		BaseURL:      upstream.URL,
		GateInterval: time.Millisecond,
		Timeout:      2 * time.Second,
	})
	cardSvc := services.NewCardService(client)
	batchSvc := services.NewBatchService(cardSvc)
	disp := bot.New("!", guard.New(guard.Config{}), cardSvc, batchSvc, &repo.LookupStore{DB: db})

	cfg := config.Config{
		APIBasePath: "/api/v1",
		OTEL:        config.OTELConfig{ServiceName: "cardbot-test"},
	}

	r := gin.New()
	RegisterRoutes(r, db, disp, cardSvc, cfg)
	return r, db
}

func postMessage(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPostMessage_CardLookup(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postMessage(t, r, map[string]any{
		"author_id": "u1", "message_id": 1, "text": "!lightning bolt",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Kind string `json:"kind"`
		Card struct {
			Name string `json:"name"`
		} `json:"card"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "card" || resp.Card.Name != "Lightning Bolt" {
		t.Fatalf("resp = %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("response must carry a correlation id")
	}
}

func TestPostMessage_DuplicateDeliverySuppressed(t *testing.T) {
	r, _ := newTestRouter(t)

	body := map[string]any{"author_id": "u1", "message_id": 7, "text": "!bolt"}
	if w := postMessage(t, r, body); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	w := postMessage(t, r, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("second: status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Kind   string `json:"kind"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "suppressed" || resp.Reason != "duplicate_delivery" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPostMessage_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postMessage(t, r, map[string]any{
		"author_id": "u1", "message_id": 2, "text": "!missingno",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "not_found" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_InvalidBody(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRandomCardEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cards/random", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var card struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "Sliver Queen" {
		t.Fatalf("card = %+v", card)
	}
}

func TestRulingsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cards/id-1/rulings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		CardID  string `json:"card_id"`
		Rulings []struct {
			Comment string `json:"comment"`
		} `json:"rulings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CardID != "id-1" || len(resp.Rulings) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestLookupsAndStatsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := postMessage(t, r, map[string]any{"author_id": "u1", "message_id": 3, "text": "!bolt"}); w.Code != http.StatusOK {
		t.Fatalf("seed lookup: %d", w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lookups?page=1&page_size=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("lookups status = %d", w.Code)
	}
	var page struct {
		Total int64 `json:"total"`
		Items []struct {
			Command string `json:"command"`
			Outcome string `json:"outcome"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Command != "lookup" {
		t.Fatalf("page = %+v", page)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "not_found" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/messages", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}
