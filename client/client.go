/*
Package client implements the coordinator's persistence collaborator over
HTTP.

PURPOSE:
  Talks to the billing API (see the api package) and translates its
  responses into billing documents. Non-2xx responses become
  RemoteOperationError values carrying the server's detail, which the
  coordinator records for user display.

The coordinator has no retry or timeout logic of its own; pass a
http.Client with a timeout (the default here is 15s) and cancel through
the context.

USAGE:
  c := client.New("http://localhost:8080", nil)
  coord, err := billing.NewCoordinator(event, c, confirmer, config)

SEE ALSO:
  - billing/coordinator.go: DocumentClient interface
  - api/handlers.go: the server side of these calls
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// Client is an HTTP DocumentClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// Compile-time check that Client implements billing.DocumentClient.
var _ billing.DocumentClient = (*Client)(nil)

// New creates a client for the API at baseURL. A nil httpClient gets a
// 15-second timeout default.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// =============================================================================
// DOCUMENT CLIENT OPERATIONS
// =============================================================================

func (c *Client) CreateEstimate(ctx context.Context, eventID billing.EventID, rate billing.DiscountRate) (billing.Document, error) {
	return c.createDocument(ctx, fmt.Sprintf("%s/api/events/%s/estimate", c.baseURL, eventID), rate)
}

func (c *Client) CreateBill(ctx context.Context, eventID billing.EventID, rate billing.DiscountRate) (billing.Document, error) {
	return c.createDocument(ctx, fmt.Sprintf("%s/api/events/%s/bill", c.baseURL, eventID), rate)
}

func (c *Client) DeleteEstimate(ctx context.Context, id billing.DocumentID) (billing.DocumentID, error) {
	url := fmt.Sprintf("%s/api/estimates/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return billing.DocumentID(resp.ID), nil
}

func (c *Client) createDocument(ctx context.Context, url string, rate billing.DiscountRate) (billing.Document, error) {
	rateValue, _ := rate.Value.Float64()
	body, err := json.Marshal(map[string]float64{"discountRate": rateValue})
	if err != nil {
		return billing.Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return billing.Document{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var dto documentResponse
	if err := c.do(req, &dto); err != nil {
		return billing.Document{}, err
	}
	return dto.toDocument()
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &billing.RemoteOperationError{
			Op:     req.Method + " " + req.URL.Path,
			Detail: serverDetail(resp),
		}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// serverDetail extracts the error message from an API error body, falling
// back to the HTTP status.
func serverDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Sprintf("%s (%s)", apiErr.Error, resp.Status)
	}
	return resp.Status
}

type documentResponse struct {
	ID                     string  `json:"id"`
	EventID                string  `json:"event_id"`
	Kind                   string  `json:"kind"`
	Date                   string  `json:"date"`
	DiscountRate           float64 `json:"discount_rate"`
	GrandTotal             float64 `json:"grand_total"`
	DiscountAmount         float64 `json:"discount_amount"`
	GrandTotalWithDiscount float64 `json:"grand_total_with_discount"`
	ReplacementTotal       float64 `json:"replacement_total"`
}

func (d documentResponse) toDocument() (billing.Document, error) {
	date, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return billing.Document{}, fmt.Errorf("invalid document date %q: %w", d.Date, err)
	}

	rate, err := billing.NewDiscountRate(decimal.NewFromFloat(d.DiscountRate))
	if err != nil {
		return billing.Document{}, err
	}

	return billing.Document{
		ID:                     billing.DocumentID(d.ID),
		EventID:                billing.EventID(d.EventID),
		Kind:                   billing.DocumentKind(d.Kind),
		Date:                   billing.TimePoint{Time: date},
		DiscountRate:           rate,
		GrandTotal:             billing.NewMoney(d.GrandTotal),
		DiscountAmount:         billing.NewMoney(d.DiscountAmount),
		GrandTotalWithDiscount: billing.NewMoney(d.GrandTotalWithDiscount),
		ReplacementTotal:       billing.NewMoney(d.ReplacementTotal),
	}, nil
}
