package utmify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/model"
)

// Platform is the merchant name reported with every order.
const Platform = "ThunderBet"

const requestTimeout = 10 * time.Second

// Client reports payment lifecycle events to the UTMify attribution API.
// Every call is best effort: failures are logged and swallowed so the
// primary payment flow is never affected by an attribution outage.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Country  string `json:"country"`
	IP       string `json:"ip"`
}

type product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PriceInCents int64  `json:"priceInCents"`
}

type commission struct {
	TotalPriceInCents     int64 `json:"totalPriceInCents"`
	GatewayFeeInCents     int64 `json:"gatewayFeeInCents"`
	UserCommissionInCents int64 `json:"userCommissionInCents"`
}

type trackingParameters struct {
	Src         string `json:"src,omitempty"`
	Sck         string `json:"sck,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
}

type orderPayload struct {
	OrderID            string              `json:"orderId"`
	Platform           string              `json:"platform"`
	PaymentMethod      string              `json:"paymentMethod"`
	Status             string              `json:"status"`
	CreatedAt          string              `json:"createdAt"`
	ApprovedDate       string              `json:"approvedDate,omitempty"`
	Customer           customer            `json:"customer"`
	Products           []product           `json:"products"`
	Commission         commission          `json:"commission"`
	TrackingParameters *trackingParameters `json:"trackingParameters,omitempty"`
	IsTest             bool                `json:"isTest"`
}

// PaymentInitiated reports a freshly generated deposit instrument as an
// order waiting for payment.
func (c *Client) PaymentInitiated(tr *model.Transaction, user *model.User, tracking model.TrackingParams) {
	payload := buildPayload(tr, user, tracking, "waiting_payment")
	c.send(payload)
}

// PaymentResolved reports the final state of a deposit, mapping the internal
// status to the UTMify vocabulary. The approval timestamp is attached only
// for completed payments.
func (c *Client) PaymentResolved(tr *model.Transaction, user *model.User, tracking model.TrackingParams) {
	payload := buildPayload(tr, user, tracking, mapStatus(tr.Status))
	if tr.Status == model.StatusCompleted {
		payload.ApprovedDate = formatDate(time.Now())
	}
	c.send(payload)
}

func buildPayload(tr *model.Transaction, user *model.User, tracking model.TrackingParams, status string) orderPayload {
	createdAt := tr.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	cents := int64(math.Round(tr.Amount * 100))
	payload := orderPayload{
		OrderID:       tr.ID.String(),
		Platform:      Platform,
		PaymentMethod: "pix",
		Status:        status,
		CreatedAt:     formatDate(createdAt),
		Customer: customer{
			Name:     user.Name,
			Email:    user.Email,
			Phone:    defaultString(user.Phone, "00000000000"),
			Document: defaultString(user.CPF, "00000000000"),
			Country:  "BR",
			IP:       defaultString(tracking.IP, "127.0.0.1"),
		},
		Products: []product{{
			ID:           tr.ID.String(),
			Name:         Platform + " Depósito PIX",
			Quantity:     1,
			PriceInCents: cents,
		}},
		Commission: commission{
			TotalPriceInCents:     cents,
			GatewayFeeInCents:     int64(math.Round(tr.Amount * 0.05 * 100)),
			UserCommissionInCents: int64(math.Round(tr.Amount * 0.95 * 100)),
		},
	}

	if tracking.HasAny() {
		payload.TrackingParameters = &trackingParameters{
			Src:         tracking.Src,
			Sck:         tracking.Sck,
			UTMSource:   tracking.UTMSource,
			UTMCampaign: tracking.UTMCampaign,
			UTMMedium:   tracking.UTMMedium,
			UTMContent:  tracking.UTMContent,
			UTMTerm:     tracking.UTMTerm,
		}
	}
	return payload
}

func (c *Client) send(payload orderPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Logg.Error("Failed to encode UTMify payload", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		logging.Logg.Error("Failed to create UTMify request", "error", err)
		return
	}
	req.Header.Set("x-api-token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Logg.Warn("UTMify request failed", "order", payload.OrderID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		logging.Logg.Warn("UTMify rejected order",
			"order", payload.OrderID,
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return
	}

	logging.Logg.Info("UTMify order sent", "order", payload.OrderID, "status", payload.Status)
}

func mapStatus(status model.TransactionStatus) string {
	switch status {
	case model.StatusCompleted:
		return "paid"
	case model.StatusFailed, model.StatusCancelled:
		return "refused"
	default:
		return "waiting_payment"
	}
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
