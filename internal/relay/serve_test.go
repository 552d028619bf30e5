package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/types"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestServe_OverEmbeddedServer(t *testing.T) {
	nc := startTestNATS(t)
	h := newHarness(t, false)
	h.inventory.pending = []types.Vehicle{{ID: uuid.New(), Make: "Toyota", Model: "Camry"}}

	// ingest side only; postVehicleToFacebook stays unserved
	d := &Dispatcher{Auth: h.authn, Inventory: h.inventory, Log: zerolog.Nop()}
	subs, err := d.Serve(nc, "dealer7", "ingest")
	require.NoError(t, err)
	assert.Len(t, subs, 4)
	require.NoError(t, nc.Flush())

	c := NewClient(nc, "dealer7", zerolog.Nop(), WithToken(h.token), WithTimeouts(2*time.Second, 2*time.Second))
	ctx := context.Background()

	id, err := c.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.owner, id.OwnerID)

	vehicles, err := c.GetPendingVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Camry", vehicles[0].Model)

	_, err = c.PostVehicle(ctx, vehicles[0])
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}

// insertStore keeps inserted vehicles in memory; nothing ever matches.
type insertStore struct {
	mu      sync.Mutex
	inserts int
}

func (s *insertStore) FindByOwnerVIN(context.Context, uuid.UUID, string) (*types.Vehicle, error) {
	return nil, nil
}

func (s *insertStore) InsertVehicle(context.Context, *types.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	return nil
}

func (s *insertStore) UpdateVehicle(context.Context, *types.Vehicle) error { return nil }

func (s *insertStore) UpdateVehicleStatus(context.Context, types.StatusUpdate, time.Time) error {
	return nil
}

func (s *insertStore) ListPendingVehicles(context.Context, *uuid.UUID) ([]types.Vehicle, error) {
	return nil, nil
}

type slowDecoder struct{ delay time.Duration }

func (d slowDecoder) Decode(ctx context.Context, _ string) types.VinDecodingResult {
	select {
	case <-time.After(d.delay):
		return types.VinDecodingResult{Success: true, Engine: "2.0L 4-cyl"}
	case <-ctx.Done():
		return types.VinDecodingResult{Error: ctx.Err().Error()}
	}
}

func TestServe_ScrapedInventoryDeadlineCoversEnrichment(t *testing.T) {
	nc := startTestNATS(t)
	h := newHarness(t, false)
	store := &insertStore{}
	svc := ingest.NewService(store, zerolog.Nop(), ingest.WithDecoder(slowDecoder{delay: 150 * time.Millisecond}))

	d := &Dispatcher{Auth: h.authn, Inventory: svc, Log: zerolog.Nop()}
	_, err := d.Serve(nc, "dealer7", "ingest")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	vehicles := make([]types.Vehicle, 4)
	for i := range vehicles {
		vin := fmt.Sprintf("1HGCV1F13MA01234%d", i)
		vehicles[i] = types.Vehicle{Make: "Honda", Model: "Accord", VIN: &vin}
	}

	// 4 decodes at 150ms each outlast the 200ms base deadline on their own.
	c := NewClient(nc, "dealer7", zerolog.Nop(), WithToken(h.token),
		WithTimeouts(200*time.Millisecond, time.Second), WithIngestAllowance(250*time.Millisecond))
	assert.Equal(t, 1200*time.Millisecond, c.ScrapedInventoryTimeout(len(vehicles)))

	result, err := c.SendScrapedInventory(context.Background(), "generic", vehicles)
	require.NoError(t, err)
	assert.Equal(t, 4, result.InsertedCount)
	assert.Equal(t, 0, result.ErrorCount)

	flat := NewClient(nc, "dealer7", zerolog.Nop(), WithToken(h.token),
		WithTimeouts(200*time.Millisecond, time.Second), WithIngestAllowance(0))
	_, err = flat.SendScrapedInventory(context.Background(), "generic", vehicles)
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
}

func TestClient_ScrapedInventoryTimeoutDefaults(t *testing.T) {
	c := NewClient(nil, "", zerolog.Nop())
	assert.Equal(t, DefaultTimeout, c.ScrapedInventoryTimeout(0))
	assert.Equal(t, DefaultTimeout+40*DefaultIngestAllowance, c.ScrapedInventoryTimeout(40))
}

func TestServe_FillerLeavesAuthenticateToIngest(t *testing.T) {
	nc := startTestNATS(t)
	h := newHarness(t, false)

	ingestSide := &Dispatcher{Auth: h.authn, Inventory: h.inventory, Log: zerolog.Nop()}
	_, err := ingestSide.Serve(nc, "dealer7", "ingest")
	require.NoError(t, err)

	fillerSide := &Dispatcher{Auth: h.authn, Filler: h.filler, Log: zerolog.Nop()}
	assert.False(t, fillerSide.Handles(CommandAuthenticate))
	subs, err := fillerSide.Serve(nc, "dealer7", "filler")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, CommandPostVehicle.Subject("dealer7"), subs[0].Subject)
	require.NoError(t, nc.Flush())

	c := NewClient(nc, "dealer7", zerolog.Nop(), WithToken(h.token), WithTimeouts(2*time.Second, 2*time.Second))
	id, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h.owner, id.OwnerID)

	// the filler still checks the caller
	_, err = NewClient(nc, "dealer7", zerolog.Nop(), WithToken("not-a-token"), WithTimeouts(2*time.Second, 2*time.Second)).
		PostVehicle(context.Background(), types.Vehicle{ID: uuid.New(), Make: "Honda", Model: "Civic"})
	var rErr *RemoteError
	require.ErrorAs(t, err, &rErr)
	assert.Empty(t, h.filler.calls)
}
