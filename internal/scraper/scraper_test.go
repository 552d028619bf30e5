package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/inventory-poster/internal/dom"
	"github.com/jonathan/inventory-poster/internal/fetch"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryURL = "https://www.smithmotors.example/used-inventory"

func inventoryHTML() string {
	var imgs strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&imgs, `<img src="/photos/f150-%d.jpg">`, i)
	}

	return `
	<html><body>
		<div class="vehicle-card">
			<h2>2021 Honda Accord LX</h2>
			<div class="price">MSRP $27,000 Sale Price $24,995</div>
			<span class="mileage">32,150 mi</span>
			<p>VIN: 1HGCV1F13MA012345</p>
			<span class="exterior-color">Platinum White Pearl</span>
			<img src="data:image/gif;base64,R0lGOD" data-src="/photos/accord-1.jpg">
			<img src="https://cdn.example.com/accord-2.jpg">
		</div>
		<div class="vehicle-card">
			<h2>Great Deal!</h2>
			<div class="price">$9,995</div>
		</div>
		<div class="vehicle-card" data-vin="1FTEW1EP5JFA12345">
			<h2>Used 2018 Ford F-150 XLT</h2>
			<div class="price">$31,500</div>
			` + imgs.String() + `
		</div>
	</body></html>`
}

func newPage(t *testing.T, html string) *dom.HTMLPage {
	t.Helper()
	page, err := dom.NewHTMLPage(html, inventoryURL)
	require.NoError(t, err)
	return page
}

func newScraper() *Scraper {
	return New(LookupSource(string(fetch.PlatformGeneric)), zerolog.Nop())
}

func TestScrape_ExtractsAndNormalizesCards(t *testing.T) {
	batch, err := newScraper().Scrape(context.Background(), newPage(t, inventoryHTML()))
	require.NoError(t, err)

	assert.Equal(t, "generic", batch.Source)
	assert.Equal(t, 3, batch.Cards)
	assert.Equal(t, 1, batch.Dropped)
	require.Len(t, batch.Vehicles, 2)

	accord := batch.Vehicles[0]
	assert.Equal(t, 2021, *accord.Year)
	assert.Equal(t, "Honda", accord.Make)
	assert.Equal(t, "Accord LX", accord.Model)
	require.NotNil(t, accord.VIN)
	assert.Equal(t, "1HGCV1F13MA012345", *accord.VIN)
	require.NotNil(t, accord.Price)
	assert.Equal(t, int64(2499500), *accord.Price)
	require.NotNil(t, accord.Mileage)
	assert.Equal(t, 32150, *accord.Mileage)
	assert.Equal(t, types.ColorWhite, accord.ExteriorColor)
	assert.Equal(t, []string{
		"https://www.smithmotors.example/photos/accord-1.jpg",
		"https://cdn.example.com/accord-2.jpg",
	}, accord.Images)
	assert.Equal(t, "generic", accord.Source)

	f150 := batch.Vehicles[1]
	assert.Equal(t, "Ford", f150.Make)
	assert.Equal(t, "F-150 XLT", f150.Model)
	require.NotNil(t, f150.VIN)
	assert.Equal(t, "1FTEW1EP5JFA12345", *f150.VIN)
	assert.Nil(t, f150.Mileage)
	assert.Equal(t, types.ColorUnknown, f150.ExteriorColor)
	assert.Len(t, f150.Images, types.MaxImages)
}

func TestScrape_RepeatedPassesAreEqual(t *testing.T) {
	s := newScraper()
	page := newPage(t, inventoryHTML())

	first, err := s.Scrape(context.Background(), page)
	require.NoError(t, err)
	second, err := s.Scrape(context.Background(), page)
	require.NoError(t, err)

	require.NotEmpty(t, first.Vehicles)
	assert.Equal(t, len(first.Vehicles), len(second.Vehicles))
	assert.Equal(t, first.Vehicles, second.Vehicles)
}

func TestScrape_NoCardsIsNotAnError(t *testing.T) {
	batch, err := newScraper().Scrape(context.Background(), newPage(t, "<html><body><h1>About us</h1></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Cards)
	assert.Empty(t, batch.Vehicles)
	assert.NotNil(t, batch.Vehicles)
}

func TestScrape_FirstMatchingCardSelectorWins(t *testing.T) {
	html := `<html><body>
		<div class="vehicle-card"><h2>2020 Mazda CX-5 Touring</h2></div>
		<div class="inventory-listing"><h2>2017 Subaru Outback Limited</h2></div>
		<div class="inventory-listing"><h2>2016 Jeep Wrangler Sport</h2></div>
	</body></html>`

	batch, err := newScraper().Scrape(context.Background(), newPage(t, html))
	require.NoError(t, err)
	require.Len(t, batch.Vehicles, 1)
	assert.Equal(t, "Mazda", batch.Vehicles[0].Make)
}

func TestScrape_LabeledVINFallback(t *testing.T) {
	html := `<html><body>
		<div class="vehicle-card">
			<h3>2019 Toyota Camry SE</h3>
			<span class="vin">VIN:4T1B11HK5KU123456</span>
		</div>
	</body></html>`

	batch, err := newScraper().Scrape(context.Background(), newPage(t, html))
	require.NoError(t, err)
	require.Len(t, batch.Vehicles, 1)
	require.NotNil(t, batch.Vehicles[0].VIN)
	assert.Equal(t, "4T1B11HK5KU123456", *batch.Vehicles[0].VIN)
}

func TestScrapeWithRetry_RetriesUntilCardsAppear(t *testing.T) {
	calls := 0
	load := func(_ context.Context) (dom.Page, error) {
		calls++
		if calls == 1 {
			return newPage(t, "<html><body><div class='spinner'></div></body></html>"), nil
		}
		return newPage(t, inventoryHTML()), nil
	}

	batch, err := newScraper().ScrapeWithRetry(context.Background(), RetryPolicy{Delays: []time.Duration{0, 0, 0}}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, batch.Attempts)
	assert.Len(t, batch.Vehicles, 2)
}

func TestScrapeWithRetry_EmptyPageAfterAllAttempts(t *testing.T) {
	calls := 0
	load := func(_ context.Context) (dom.Page, error) {
		calls++
		return newPage(t, "<html><body></body></html>"), nil
	}

	batch, err := newScraper().ScrapeWithRetry(context.Background(), RetryPolicy{Delays: []time.Duration{0, 0}}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, batch.Vehicles)
}

func TestScrapeWithRetry_LoadErrorsThenSuccess(t *testing.T) {
	calls := 0
	load := func(_ context.Context) (dom.Page, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return newPage(t, inventoryHTML()), nil
	}

	batch, err := newScraper().ScrapeWithRetry(context.Background(), RetryPolicy{Delays: []time.Duration{0, 0, 0}}, load)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Attempts)
}

func TestScrapeWithRetry_AllAttemptsFail(t *testing.T) {
	load := func(_ context.Context) (dom.Page, error) {
		return nil, errors.New("dns failure")
	}

	batch, err := newScraper().ScrapeWithRetry(context.Background(), RetryPolicy{}, load)
	require.Error(t, err)
	assert.Nil(t, batch)

	var sErr *ScrapeError
	require.ErrorAs(t, err, &sErr)
	assert.Contains(t, err.Error(), "dns failure")
}

func TestScrapeWithRetry_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	load := func(_ context.Context) (dom.Page, error) {
		t.Fatal("loader should not run after cancellation")
		return nil, nil
	}

	_, err := newScraper().ScrapeWithRetry(ctx, RetryPolicy{Delays: []time.Duration{time.Second}}, load)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScrapeHTML_RetriesFirstLoadAndDetectsSource(t *testing.T) {
	calls := 0
	load := func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("HTTP status 503")
		}
		return strings.Replace(inventoryHTML(), "<body>", `<body class="ddc-page">`, 1), nil
	}

	batch, err := ScrapeHTML(context.Background(), inventoryURL, "", RetryPolicy{Delays: []time.Duration{0, 0}}, load, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, batch.Attempts)
	assert.Equal(t, "dealercom", batch.Source)
	assert.Len(t, batch.Vehicles, 2)
}

func TestScrapeHTML_NamedSourceSkipsDetection(t *testing.T) {
	load := func(_ context.Context) (string, error) {
		return strings.Replace(inventoryHTML(), "<body>", `<body class="ddc-page">`, 1), nil
	}

	batch, err := ScrapeHTML(context.Background(), inventoryURL, "generic", RetryPolicy{}, load, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "generic", batch.Source)
}

func TestScrapeHTML_EveryLoadFails(t *testing.T) {
	load := func(_ context.Context) (string, error) {
		return "", errors.New("HTTP status 500")
	}

	batch, err := ScrapeHTML(context.Background(), inventoryURL, "", RetryPolicy{Delays: []time.Duration{0, 0}}, load, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.Contains(t, err.Error(), "HTTP status 500")
}

func TestLookupSource(t *testing.T) {
	assert.Equal(t, "dealeron", LookupSource("dealeron").Name)
	assert.Equal(t, "generic", LookupSource("does-not-exist").Name)
	assert.Equal(t, "dealerinspire", SourceForPage("https://www.jonestoyota.example/used", "<script src='//dealerinspire.com/x.js'>").Name)

	for _, name := range []string{"generic", "dealeron", "dealerinspire", "dealercom"} {
		src := LookupSource(name)
		assert.NotEmpty(t, src.CardSelectors, name)
		assert.NotEmpty(t, src.TitleSelectors, name)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, DefaultRetryPolicy().Delays)
}
