// Package vindecode decodes VINs through the NHTSA vPIC service.
//
// Decode never returns an error: transport failures, non-2xx responses and
// vPIC error codes all come back as a result with Success=false and a reason.
package vindecode

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

	"github.com/jonathan/inventory-poster/internal/normalize"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public vPIC API root.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

// Decoder decodes one VIN.
type Decoder interface {
	Decode(ctx context.Context, vin string) types.VinDecodingResult
}

// Client calls the vPIC DecodeVinValues endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimiter replaces the default request pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithClock replaces time.Now for decodedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type decodeResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []decodeValues `json:"Results"`
}

type decodeValues struct {
	ErrorCode         string `json:"ErrorCode"`
	ErrorText         string `json:"ErrorText"`
	BodyClass         string `json:"BodyClass"`
	FuelTypePrimary   string `json:"FuelTypePrimary"`
	TransmissionStyle string `json:"TransmissionStyle"`
	DisplacementL     string `json:"DisplacementL"`
	EngineCylinders   string `json:"EngineCylinders"`
	VehicleType       string `json:"VehicleType"`
	DriveType         string `json:"DriveType"`
}

// Decode validates the VIN length, then requests and maps the decoded attributes.
func (c *Client) Decode(ctx context.Context, vin string) types.VinDecodingResult {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	result := types.VinDecodingResult{VIN: vin, DecodedAt: c.now().UTC()}

	if err := normalize.ValidateVIN(vin); err != nil {
		result.Error = err.Error()
		return result
	}

	values, err := c.fetch(ctx, vin)
	if err != nil {
		c.log.Warn().Err(err).Str("vin", vin).Msg("vin decode failed")
		result.Error = err.Error()
		return result
	}

	if !successCode(values.ErrorCode) {
		result.Error = fmt.Sprintf("decode service rejected VIN (code %s): %s", values.ErrorCode, strings.TrimSpace(values.ErrorText))
		return result
	}

	result.Success = true
	result.BodyStyle = values.BodyClass
	result.FuelType = values.FuelTypePrimary
	result.Transmission = values.TransmissionStyle
	result.Engine = engine(values.DisplacementL, values.EngineCylinders)
	result.VehicleType = values.VehicleType
	result.Drivetrain = values.DriveType
	return result
}

func (c *Client) fetch(ctx context.Context, vin string) (*decodeValues, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{VIN: vin, Message: "rate limiter wait aborted", Cause: err}
		}
	}

	endpoint := fmt.Sprintf("%s/DecodeVinValues/%s?format=json", c.baseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{VIN: vin, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{VIN: vin, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{VIN: vin, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{VIN: vin, Message: "failed to read response", Cause: err}
	}

	var decoded decodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &TransportError{VIN: vin, Message: "malformed response", Cause: err}
	}
	if len(decoded.Results) == 0 {
		return nil, &TransportError{VIN: vin, Message: "response contained no results"}
	}
	return &decoded.Results[0], nil
}

// successCode reports whether a vPIC ErrorCode list ("0", "1,11") contains only "0".
func successCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, part := range strings.Split(code, ",") {
		if strings.TrimSpace(part) != "0" {
			return false
		}
	}
	return true
}

func engine(displacementL, cylinders string) string {
	var parts []string
	if d := strings.TrimSpace(displacementL); d != "" {
		if f, err := strconv.ParseFloat(d, 64); err == nil {
			d = strconv.FormatFloat(f, 'f', 1, 64)
		}
		parts = append(parts, d+"L")
	}
	if c := strings.TrimSpace(cylinders); c != "" {
		parts = append(parts, c+"-cyl")
	}
	return strings.Join(parts, " ")
}
