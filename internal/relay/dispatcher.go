package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/poster"
	"github.com/jonathan/inventory-poster/internal/schemas"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Authenticator resolves caller tokens. *auth.Authenticator implements it.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// Inventory is the ingest side of the relay. *ingest.Service implements it.
type Inventory interface {
	Upsert(ctx context.Context, payloads []ingest.Payload, ownerID *uuid.UUID) (*ingest.Result, error)
	UpdateStatus(ctx context.Context, u types.StatusUpdate) error
	PendingVehicles(ctx context.Context, ownerID *uuid.UUID) ([]types.Vehicle, error)
}

// Subscriber registers queue subscriptions. *nats.Conn implements it.
type Subscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Dispatcher routes envelopes to handlers by command. A nil handler leaves
// its commands unsupported, so one process can serve a subset. Auth checks
// callers on every served command, but CommandAuthenticate itself is answered
// only where Inventory is served, so a filler with Auth set never competes
// with the ingest worker for it.
type Dispatcher struct {
	Auth      Authenticator
	Inventory Inventory
	Filler    poster.Filler
	Log       zerolog.Logger
}

// Handles reports whether d has a handler for cmd.
func (d *Dispatcher) Handles(cmd Command) bool {
	switch cmd {
	case CommandAuthenticate:
		return d.Auth != nil && d.Inventory != nil
	case CommandScrapedInventory, CommandGetPendingVehicles, CommandUpdateVehicleStatus:
		return d.Inventory != nil
	case CommandPostVehicle:
		return d.Filler != nil
	}
	return false
}

// Dispatch executes one envelope. It never panics on bad input and always returns a Reply.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) Reply {
	if !env.Command.Valid() {
		return failure(CodeUnknownCommand, fmt.Errorf("unknown command %q", env.Command))
	}
	if !d.Handles(env.Command) {
		return failure(CodeUnsupported, fmt.Errorf("command %s is not served here", env.Command))
	}

	switch env.Command {
	case CommandAuthenticate:
		id, err := d.Auth.Authenticate(env.Token)
		if err != nil {
			return d.fail(env.Command, err)
		}
		return success(AuthenticateResponse{Identity: id})

	case CommandScrapedInventory:
		return d.scrapedInventory(ctx, env)

	case CommandGetPendingVehicles:
		id, err := d.identity(env)
		if err != nil {
			return d.fail(env.Command, err)
		}
		var owner *uuid.UUID
		if !id.IsAdmin() {
			owner = &id.OwnerID
		}
		vehicles, err := d.Inventory.PendingVehicles(ctx, owner)
		if err != nil {
			return d.fail(env.Command, err)
		}
		return success(GetPendingVehiclesResponse{Vehicles: vehicles})

	case CommandUpdateVehicleStatus:
		if _, err := d.identity(env); err != nil {
			return d.fail(env.Command, err)
		}
		var req UpdateVehicleStatusRequest
		if err := decodePayload(env.Payload, &req); err != nil {
			return failure(CodeInvalidRequest, err)
		}
		if err := d.Inventory.UpdateStatus(ctx, req); err != nil {
			return d.fail(env.Command, err)
		}
		return success(nil)

	case CommandPostVehicle:
		if d.Auth != nil {
			if _, err := d.identity(env); err != nil {
				return d.fail(env.Command, err)
			}
		}
		var req PostVehicleRequest
		if err := decodePayload(env.Payload, &req); err != nil {
			return failure(CodeInvalidRequest, err)
		}
		report, err := d.Filler.PostVehicle(ctx, req.Vehicle)
		if err != nil {
			return d.fail(env.Command, err)
		}
		return success(report)
	}
	return failure(CodeUnknownCommand, fmt.Errorf("unknown command %q", env.Command))
}

// scrapedInventory validates the batch shape, then upserts it. A missing token
// is allowed: ingest rejects each insert with a missing-owner error instead.
func (d *Dispatcher) scrapedInventory(ctx context.Context, env Envelope) Reply {
	if err := schemas.ValidateScrapedInventory(env.Payload); err != nil {
		return failure(CodeInvalidRequest, err)
	}
	var req scrapedInventoryPayload
	if err := decodePayload(env.Payload, &req); err != nil {
		return failure(CodeInvalidRequest, err)
	}

	var owner *uuid.UUID
	if env.Token != "" {
		id, err := d.identity(env)
		if err != nil {
			return d.fail(env.Command, err)
		}
		owner = &id.OwnerID
	}

	for i := range req.Vehicles {
		if strings.TrimSpace(req.Vehicles[i].Source) == "" {
			req.Vehicles[i].Source = req.Source
		}
	}

	result, err := d.Inventory.Upsert(ctx, req.Vehicles, owner)
	if err != nil {
		return d.fail(env.Command, err)
	}
	d.Log.Info().
		Str("source", req.Source).
		Int("inserted", result.InsertedCount).
		Int("updated", result.UpdatedCount).
		Int("errored", result.ErrorCount).
		Msg("scraped inventory ingested")
	return success(result)
}

func (d *Dispatcher) identity(env Envelope) (auth.Identity, error) {
	if d.Auth == nil {
		return auth.Identity{}, errors.New("authentication is not configured")
	}
	if env.Token == "" {
		return auth.Identity{}, &auth.TokenError{Message: "token required"}
	}
	return d.Auth.Authenticate(env.Token)
}

func (d *Dispatcher) fail(cmd Command, err error) Reply {
	reply := failure(codeForError(err), err)
	d.Log.Warn().Err(err).Str("command", string(cmd)).Str("code", reply.Code).Msg("command failed")
	return reply
}

// Handle decodes one raw envelope received on cmd's subject and encodes the reply.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command, data []byte) []byte {
	var reply Reply
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		reply = failure(CodeInvalidRequest, fmt.Errorf("malformed envelope: %w", err))
	} else {
		if env.Command == "" {
			env.Command = cmd
		}
		if env.Command != cmd {
			reply = failure(CodeInvalidRequest, fmt.Errorf("command %q sent on %s subject", env.Command, cmd))
		} else {
			reply = d.Dispatch(ctx, env)
		}
	}

	out, err := json.Marshal(reply)
	if err != nil {
		out, _ = json.Marshal(failure(CodeInternal, fmt.Errorf("failed to encode reply: %w", err)))
	}
	return out
}

// Serve subscribes every handled command under prefix in queue group queue.
func (d *Dispatcher) Serve(sub Subscriber, prefix, queue string) ([]*nats.Subscription, error) {
	var subs []*nats.Subscription
	for _, cmd := range Commands {
		if !d.Handles(cmd) {
			continue
		}
		s, err := sub.QueueSubscribe(cmd.Subject(prefix), queue, func(msg *nats.Msg) {
			out := d.Handle(extractTrace(msg), cmd, msg.Data)
			if err := msg.Respond(out); err != nil {
				d.Log.Error().Err(err).Str("command", string(cmd)).Msg("failed to send reply")
			}
		})
		if err != nil {
			for _, prev := range subs {
				_ = prev.Unsubscribe()
			}
			return nil, fmt.Errorf("failed to subscribe %s: %w", cmd, err)
		}
		d.Log.Info().Str("subject", cmd.Subject(prefix)).Str("queue", queue).Msg("serving command")
		subs = append(subs, s)
	}
	if len(subs) == 0 {
		return nil, errors.New("dispatcher has no handlers")
	}
	return subs, nil
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

func success(payload any) Reply {
	reply := Reply{OK: true}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return failure(CodeInternal, fmt.Errorf("failed to encode payload: %w", err))
		}
		reply.Payload = raw
	}
	return reply
}

func failure(code string, err error) Reply {
	return Reply{OK: false, Code: code, Error: err.Error()}
}

var (
	_ Authenticator = (*auth.Authenticator)(nil)
	_ Inventory     = (*ingest.Service)(nil)
)
