package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func tokenHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   7200,
		})
	}
}

func TestTokenCacheReusesUnexpiredToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(tokenHandler(&calls))
	defer srv.Close()

	cache := NewTokenCache("id", "secret", srv.URL, time.Second)

	for i := 0; i < 3; i++ {
		token, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("Token returned error: %v", err)
		}
		if token != "tok-123" {
			t.Fatalf("token = %q", token)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("token endpoint called %d times, want 1", got)
	}
}

func TestTokenCacheRefreshesAfterExpiry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(tokenHandler(&calls))
	defer srv.Close()

	cache := NewTokenCache("id", "secret", srv.URL, time.Second)
	now := time.Now()
	cache.now = func() time.Time { return now }

	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("first Token: %v", err)
	}

	now = now.Add(3 * time.Hour)
	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("second Token: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("token endpoint called %d times, want 2 after expiry", got)
	}
}

func TestTokenCacheErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cache := NewTokenCache("id", "secret", srv.URL, time.Second)
	if _, err := cache.Token(context.Background()); err == nil {
		t.Fatal("401 from token endpoint should be an error")
	}
}

func newTestClient(t *testing.T, browse http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", tokenHandler(nil))
	mux.HandleFunc(browseSearchPath, browse)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(Options{
		ClientID:      "id",
		ClientSecret:  "secret",
		BaseURL:       srv.URL,
		TokenURL:      srv.URL + "/identity/v1/oauth2/token",
		Timeout:       time.Second,
		RatePerSecond: 1000,
	}, zerolog.Nop())
	return client, srv
}

func TestSearchSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Fatalf("Authorization header = %q", got)
		}
		if got := r.Header.Get("X-EBAY-C-MARKETPLACE-ID"); got != "EBAY_US" {
			t.Fatalf("marketplace header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "ps5 slim" {
			t.Fatalf("query param = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Fatalf("limit param = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"itemSummaries": []map[string]any{
				{
					"title":      "PS5 Slim Console",
					"price":      map[string]string{"value": "399.99"},
					"condition":  "Used",
					"itemWebUrl": "https://example.com/item/1",
					"shippingOptions": []map[string]any{
						{"shippingCost": map[string]string{"value": "12.50"}},
					},
					"image": map[string]string{"imageUrl": "https://example.com/1.jpg"},
				},
				{
					"title": "PS5 Slim box only",
					"price": map[string]string{"value": "25.00"},
				},
			},
		})
	})

	listings, err := client.Search(context.Background(), "ps5 slim", "", 50)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings", len(listings))
	}
	if !listings[0].Price.Equal(decimal.NewFromFloat(399.99)) {
		t.Fatalf("price = %s", listings[0].Price)
	}
	if !listings[0].Shipping.Equal(decimal.NewFromFloat(12.50)) {
		t.Fatalf("shipping = %s", listings[0].Shipping)
	}
	if !listings[1].Shipping.IsZero() {
		t.Fatalf("missing shipping should be zero, got %s", listings[1].Shipping)
	}
	if listings[0].Image != "https://example.com/1.jpg" {
		t.Fatalf("image = %q", listings[0].Image)
	}
}

func TestSearchCategoryParam(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("category_ids"); got != "139973" {
			t.Fatalf("category_ids = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"itemSummaries": []any{}})
	})

	if _, err := client.Search(context.Background(), "zelda", "139973", 10); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
}

func TestSearchAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "internal failure"}},
		})
	})

	_, err := client.Search(context.Background(), "anything", "", 10)
	if err == nil {
		t.Fatal("non-2xx should be an error")
	}
	if !strings.Contains(err.Error(), "internal failure") {
		t.Fatalf("error should carry the API message, got %v", err)
	}
}

func TestSearchURL(t *testing.T) {
	u := SearchURL("nintendo switch", false)
	if !strings.Contains(u, "_nkw=nintendo+switch") {
		t.Fatalf("url = %q", u)
	}
	if strings.Contains(u, "LH_Sold") {
		t.Fatal("active search should not filter to sold")
	}

	sold := SearchURL("nintendo switch", true)
	if !strings.Contains(sold, "LH_Sold=1") || !strings.Contains(sold, "LH_Complete=1") {
		t.Fatalf("sold url = %q", sold)
	}
}
