// Package relay carries commands between processes over NATS request/reply.
//
// Every command is one round trip: an Envelope goes out on the command's
// subject and exactly one Reply comes back.
package relay

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/poster"
	"github.com/jonathan/inventory-poster/internal/types"
)

// DefaultSubjectPrefix is prepended to every command subject.
const DefaultSubjectPrefix = "inventory"

// Command names a relay operation.
type Command string

const (
	CommandAuthenticate        Command = "authenticate"
	CommandScrapedInventory    Command = "scrapedInventory"
	CommandGetPendingVehicles  Command = "getPendingVehicles"
	CommandUpdateVehicleStatus Command = "updateVehicleStatus"
	CommandPostVehicle         Command = "postVehicleToFacebook"
)

// Commands lists every command in a stable order.
var Commands = []Command{
	CommandAuthenticate,
	CommandScrapedInventory,
	CommandGetPendingVehicles,
	CommandUpdateVehicleStatus,
	CommandPostVehicle,
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	for _, known := range Commands {
		if c == known {
			return true
		}
	}
	return false
}

// Subject returns the NATS subject for c under prefix.
func (c Command) Subject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return strings.TrimSuffix(prefix, ".") + "." + string(c)
}

// Reply error codes.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeUnknownCommand  = "unknown_command"
	CodeUnsupported     = "unsupported"
	CodeNotOnTargetPage = "not_on_target_page"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// Envelope is the request side of every command.
type Envelope struct {
	Command Command         `json:"command"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply is the response side of every command.
type Reply struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthenticateResponse answers CommandAuthenticate.
type AuthenticateResponse struct {
	Identity auth.Identity `json:"identity"`
}

// ScrapedInventoryRequest is the single message a scrape pass sends.
type ScrapedInventoryRequest struct {
	Source   string          `json:"source"`
	Vehicles []types.Vehicle `json:"vehicles"`
}

// scrapedInventoryPayload is how the ingest side reads a ScrapedInventoryRequest:
// every vehicle is re-parsed from loosely typed fields.
type scrapedInventoryPayload struct {
	Source   string           `json:"source"`
	Vehicles []ingest.Payload `json:"vehicles"`
}

// ScrapedInventoryResponse answers CommandScrapedInventory.
type ScrapedInventoryResponse = ingest.Result

// GetPendingVehiclesResponse answers CommandGetPendingVehicles.
type GetPendingVehiclesResponse struct {
	Vehicles []types.Vehicle `json:"vehicles"`
}

// UpdateVehicleStatusRequest carries one posting outcome.
type UpdateVehicleStatusRequest = types.StatusUpdate

// PostVehicleRequest asks the form filler to populate one listing.
type PostVehicleRequest struct {
	Vehicle types.Vehicle `json:"vehicle"`
}

// PostVehicleResponse answers CommandPostVehicle.
type PostVehicleResponse = poster.FillReport
