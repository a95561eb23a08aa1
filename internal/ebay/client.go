package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"flipcheck/internal/pricing"
)

const browseSearchPath = "/buy/browse/v1/item_summary/search"

// Options parameterise the Browse API client.
type Options struct {
	ClientID      string
	ClientSecret  string
	BaseURL       string
	TokenURL      string
	MarketplaceID string
	Timeout       time.Duration
	RatePerSecond float64
}

// Client queries the eBay Browse API for active listings.
type Client struct {
	opts    Options
	tokens  *TokenCache
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	logger  zerolog.Logger
}

// NewClient constructs a Browse API client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.ebay.com"
	}

	perSecond := opts.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}

	return &Client{
		opts:    opts,
		tokens:  NewTokenCache(opts.ClientID, opts.ClientSecret, opts.TokenURL, timeout),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "ebay_client").Logger(),
	}
}

// Search fetches up to limit active listings for the query, sorted by price.
func (c *Client) Search(ctx context.Context, query, category string, limit int) ([]pricing.Listing, error) {
	if limit <= 0 {
		limit = 50
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain ebay token: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "price")
	if category != "" {
		params.Set("category_ids", category)
	}

	endpoint := c.baseURL + browseSearchPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	marketplace := c.opts.MarketplaceID
	if marketplace == "" {
		marketplace = "EBAY_US"
	}
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplace)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse browse response: %w", err)
	}

	listings := make([]pricing.Listing, 0, len(payload.ItemSummaries))
	for _, item := range payload.ItemSummaries {
		listing := pricing.Listing{
			Title:     item.Title,
			Price:     parseAmount(item.Price.Value),
			Condition: item.Condition,
			URL:       item.ItemWebURL,
		}
		if len(item.ShippingOptions) > 0 {
			listing.Shipping = parseAmount(item.ShippingOptions[0].ShippingCost.Value)
		}
		if item.Image != nil {
			listing.Image = item.Image.ImageURL
		}
		listings = append(listings, listing)
	}

	c.logger.Debug().Str("query", query).Int("listings", len(listings)).Msg("browse search complete")
	return listings, nil
}

// SearchURL builds a public eBay search link for manual follow-up.
func SearchURL(query string, soldOnly bool) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("_sop", "13") // price + shipping, lowest first
	if soldOnly {
		params.Set("LH_Complete", "1")
		params.Set("LH_Sold", "1")
	}
	return "https://www.ebay.com/sch/i.html?" + params.Encode()
}

func parseAmount(v string) decimal.Decimal {
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

type itemSummary struct {
	Title string `json:"title"`
	Price struct {
		Value string `json:"value"`
	} `json:"price"`
	Condition       string `json:"condition"`
	ItemWebURL      string `json:"itemWebUrl"`
	ShippingOptions []struct {
		ShippingCost struct {
			Value string `json:"value"`
		} `json:"shippingCost"`
	} `json:"shippingOptions"`
	Image *struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`
}

type apiError struct {
	Errors []struct {
		Message     string `json:"message"`
		LongMessage string `json:"longMessage"`
	} `json:"errors"`
}

func parseAPIError(status int, payload []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(payload, &apiErr); err == nil && len(apiErr.Errors) > 0 {
		msg := apiErr.Errors[0].LongMessage
		if msg == "" {
			msg = apiErr.Errors[0].Message
		}
		if msg != "" {
			return fmt.Errorf("ebay api error (%d): %s", status, msg)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("ebay api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("ebay api error (%d)", status)
}

var _ pricing.ListingProvider = (*Client)(nil)
