package vindecode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(url string) *Client {
	return NewClient(url, zerolog.Nop(), WithLimiter(nil), WithClock(func() time.Time { return fixedNow }))
}

const accordResponse = `{
  "Count": 1,
  "Message": "Results returned successfully",
  "Results": [{
    "ErrorCode": "0",
    "ErrorText": "0 - VIN decoded clean. Check Digit (9th position) is correct",
    "BodyClass": "Sedan/Saloon",
    "FuelTypePrimary": "Gasoline",
    "TransmissionStyle": "Continuously Variable Transmission (CVT)",
    "DisplacementL": "1.498820",
    "EngineCylinders": "4",
    "VehicleType": "PASSENGER CAR",
    "DriveType": "FWD/Front-Wheel Drive"
  }]
}`

func TestDecode_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(accordResponse))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), " 1hgcv1f13ma012345 ")

	assert.Equal(t, "/DecodeVinValues/1HGCV1F13MA012345", gotPath)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, "1HGCV1F13MA012345", result.VIN)
	assert.Equal(t, "Sedan/Saloon", result.BodyStyle)
	assert.Equal(t, "Gasoline", result.FuelType)
	assert.Equal(t, "Continuously Variable Transmission (CVT)", result.Transmission)
	assert.Equal(t, "1.5L 4-cyl", result.Engine)
	assert.Equal(t, "PASSENGER CAR", result.VehicleType)
	assert.Equal(t, "FWD/Front-Wheel Drive", result.Drivetrain)
	assert.Equal(t, fixedNow, result.DecodedAt)
}

func TestDecode_InvalidLengthMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), "1HGCV1F13")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "17 characters")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDecode_ServiceErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Count":1,"Results":[{"ErrorCode":"1,11","ErrorText":"1 - Check Digit (9th position) does not calculate properly"}]}`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA012345")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "code 1,11")
	assert.Contains(t, result.Error, "Check Digit")
	assert.Empty(t, result.BodyStyle)
}

func TestDecode_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA012345")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unexpected status 503")
}

func TestDecode_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA012345")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "malformed response")
}

func TestDecode_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Count":0,"Results":[]}`))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA012345")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no results")
}

func TestDecode_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := newTestClient(url).Decode(context.Background(), "1HGCV1F13MA012345")

	assert.False(t, result.Success)
	assert.True(t, strings.HasPrefix(result.Error, "vin decode transport error"))
}

func TestSuccessCode(t *testing.T) {
	assert.True(t, successCode("0"))
	assert.True(t, successCode(" 0 "))
	assert.False(t, successCode(""))
	assert.False(t, successCode("1"))
	assert.False(t, successCode("0,8"))
}

func TestEngine(t *testing.T) {
	assert.Equal(t, "2.0L 4-cyl", engine("2.0", "4"))
	assert.Equal(t, "3.5L", engine("3.5", ""))
	assert.Equal(t, "6-cyl", engine("", "6"))
	assert.Equal(t, "", engine("", ""))
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := &TransportError{VIN: "X", Message: "request failed", Cause: cause}
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "request failed")
}
