package label

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"go.uber.org/zap"
)

type PackageDetails struct {
	Weight     string `json:"weight"`
	Dimensions string `json:"dimensions"`
}

type Request struct {
	ShipmentID       string         `json:"shipmentId"`
	CarrierName      string         `json:"carrierName"`
	TrackingCode     string         `json:"trackingCode"`
	SenderAddress    string         `json:"senderAddress"`
	RecipientAddress string         `json:"recipientAddress"`
	PackageDetails   PackageDetails `json:"packageDetails"`
	Language         string         `json:"language"`
}

type Response struct {
	Success  bool   `json:"success"`
	LabelURL string `json:"labelUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// NewRequest assembles the generator input from a stored shipment. The language code
// is passed through untouched.
func NewRequest(s *domain.Shipment, carrier, language string) Request {
	return Request{
		ShipmentID:       strconv.FormatInt(s.ID, 10),
		CarrierName:      carrier,
		TrackingCode:     s.TrackingCode,
		SenderAddress:    s.Pickup.String(),
		RecipientAddress: s.Delivery.String(),
		PackageDetails: PackageDetails{
			Weight:     s.Package.Weight(),
			Dimensions: s.Package.Dimensions(),
		},
		Language: language,
	}
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewHTTPClient(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Generate posts req to the label service. An unsuccessful reply is returned as an
// error carrying the service message.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode label request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("label request failed: %w", err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode label response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return out, errors.New("label generation failed: " + msg)
	}
	if out.LabelURL == "" {
		return out, errors.New("label generation returned no url")
	}

	c.logger.Debug("label generated", zap.String("tracking_code", req.TrackingCode), zap.String("label_url", out.LabelURL))
	return out, nil
}

var _ Generator = (*HTTPClient)(nil)
