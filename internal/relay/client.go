package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/normalize"
	"github.com/jonathan/inventory-poster/internal/poster"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds every command except CommandPostVehicle. It is the
	// base deadline for CommandScrapedInventory.
	DefaultTimeout = 10 * time.Second
	// DefaultPostTimeout bounds one form fill on the remote filler.
	DefaultPostTimeout = 2 * time.Minute
	// DefaultIngestAllowance is added to DefaultTimeout for every vehicle in a
	// CommandScrapedInventory batch. The ingest worker decodes the VIN and writes
	// a description for each new record before it replies.
	DefaultIngestAllowance = 3 * time.Second
)

// Requester performs one request/reply exchange. *nats.Conn implements it.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// Client sends commands. It satisfies poster.PendingSource, poster.Filler and
// poster.StatusRecorder so a posting run can be driven entirely over the relay.
type Client struct {
	conn        Requester
	prefix      string
	token       string
	timeout     time.Duration
	postTimeout time.Duration
	perVehicle  time.Duration
	log         zerolog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithToken attaches a caller token to every envelope.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithTimeouts overrides DefaultTimeout and DefaultPostTimeout.
func WithTimeouts(timeout, postTimeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		c.postTimeout = postTimeout
	}
}

// WithIngestAllowance overrides DefaultIngestAllowance.
func WithIngestAllowance(perVehicle time.Duration) ClientOption {
	return func(c *Client) { c.perVehicle = perVehicle }
}

// NewClient creates a Client publishing under prefix.
func NewClient(conn Requester, prefix string, log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		conn:        conn,
		prefix:      prefix,
		timeout:     DefaultTimeout,
		postTimeout: DefaultPostTimeout,
		perVehicle:  DefaultIngestAllowance,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate resolves the client's token into an identity.
func (c *Client) Authenticate(ctx context.Context) (auth.Identity, error) {
	var resp AuthenticateResponse
	if err := c.call(ctx, CommandAuthenticate, nil, &resp, c.timeout); err != nil {
		return auth.Identity{}, err
	}
	return resp.Identity, nil
}

// SendScrapedInventory delivers one scrape pass as a single batch. The reply
// deadline grows with the batch; see ScrapedInventoryTimeout.
func (c *Client) SendScrapedInventory(ctx context.Context, source string, vehicles []types.Vehicle) (*ingest.Result, error) {
	if vehicles == nil {
		vehicles = []types.Vehicle{}
	}
	var resp ScrapedInventoryResponse
	req := ScrapedInventoryRequest{Source: source, Vehicles: vehicles}
	if err := c.call(ctx, CommandScrapedInventory, req, &resp, c.ScrapedInventoryTimeout(len(vehicles))); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScrapedInventoryTimeout is the reply deadline for a batch of n vehicles.
func (c *Client) ScrapedInventoryTimeout(n int) time.Duration {
	return c.timeout + time.Duration(n)*c.perVehicle
}

// GetPendingVehicles implements poster.PendingSource.
func (c *Client) GetPendingVehicles(ctx context.Context) ([]types.Vehicle, error) {
	var resp GetPendingVehiclesResponse
	if err := c.call(ctx, CommandGetPendingVehicles, nil, &resp, c.timeout); err != nil {
		return nil, err
	}
	return resp.Vehicles, nil
}

// UpdateVehicleStatus implements poster.StatusRecorder.
func (c *Client) UpdateVehicleStatus(ctx context.Context, u types.StatusUpdate) error {
	return c.call(ctx, CommandUpdateVehicleStatus, u, nil, c.timeout)
}

// PostVehicle implements poster.Filler.
func (c *Client) PostVehicle(ctx context.Context, v types.Vehicle) (*poster.FillReport, error) {
	var resp PostVehicleResponse
	if err := c.call(ctx, CommandPostVehicle, PostVehicleRequest{Vehicle: v}, &resp, c.postTimeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, cmd Command, payload any, out any, timeout time.Duration) error {
	env := Envelope{Command: cmd, Token: c.token}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &TransportError{Command: cmd, Message: "failed to marshal payload", Cause: err}
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return &TransportError{Command: cmd, Message: "failed to marshal envelope", Cause: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg := &nats.Msg{Subject: cmd.Subject(c.prefix), Data: data}
	injectTrace(ctx, msg)

	start := time.Now()
	resp, err := c.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return &TransportError{Command: cmd, Message: "request failed", Cause: err}
	}
	c.log.Debug().Str("command", string(cmd)).Dur("elapsed", time.Since(start)).Msg("relay round trip")

	var reply Reply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return &TransportError{Command: cmd, Message: "malformed reply", Cause: err}
	}
	if !reply.OK {
		return &RemoteError{Command: cmd, Code: reply.Code, Message: reply.Error, cause: causeForCode(reply.Code)}
	}
	if out != nil && len(reply.Payload) > 0 {
		if err := json.Unmarshal(reply.Payload, out); err != nil {
			return &TransportError{Command: cmd, Message: "malformed reply payload", Cause: err}
		}
	}
	return nil
}

// causeForCode maps reply codes back to the sentinels callers classify with errors.Is.
func causeForCode(code string) error {
	switch code {
	case CodeNotOnTargetPage:
		return poster.ErrNotOnTargetPage
	case CodeForbidden:
		return auth.ErrForbidden
	case CodeNotFound:
		return ingest.ErrVehicleNotFound
	}
	return nil
}

// codeForError classifies a handler error for the Reply.
func codeForError(err error) string {
	var (
		tokErr *auth.TokenError
		valErr *normalize.ValidationError
	)
	switch {
	case errors.Is(err, poster.ErrNotOnTargetPage):
		return CodeNotOnTargetPage
	case errors.Is(err, auth.ErrForbidden):
		return CodeForbidden
	case errors.As(err, &tokErr):
		return CodeUnauthorized
	case errors.Is(err, ingest.ErrVehicleNotFound):
		return CodeNotFound
	case errors.As(err, &valErr):
		return CodeInvalidRequest
	}
	return CodeInternal
}

var (
	_ poster.PendingSource  = (*Client)(nil)
	_ poster.Filler         = (*Client)(nil)
	_ poster.StatusRecorder = (*Client)(nil)
)
