// SPDX-License-Identifier: MIT
package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mleitner/leavetray/internal/clock"
	"github.com/mleitner/leavetray/internal/countdown"
	"github.com/mleitner/leavetray/internal/report"
)

type noopNotifier struct{}

func (noopNotifier) Notify(_, _ string) error { return nil }

func testRender(string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 32, 32)), nil
}

// newTestServer wires a real engine (fixed clock, stub render/notify) and a
// report client pointed at the given upstream.
func newTestServer(t *testing.T, reportUpstream string) *Server {
	t.Helper()
	tray := NewTrayState()
	engine := countdown.New(countdown.Options{
		Clock: clock.Func(func() time.Time {
			return time.Date(2026, 8, 29, 8, 5, 0, 0, time.Local)
		}),
		Sink:         tray,
		Notifier:     noopNotifier{},
		Render:       testRender,
		TickInterval: time.Hour,
	})
	t.Cleanup(engine.Stop)

	client := report.New(report.Config{ServerURL: reportUpstream, ReportPath: "/HR/Entrance"})
	return New(engine, client, tray)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestShiftSubmitAndStatus(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/shift",
		`{"start":"08:00","leave":"08:10","notify_before_minutes":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Active           bool   `json:"active"`
		Leave            string `json:"leave"`
		MinutesRemaining int    `json:"minutes_remaining"`
		Display          string `json:"display"`
		Notified         bool   `json:"notified"`
		Tooltip          string `json:"tooltip"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Active)
	assert.Equal(t, "08:10", got.Leave)
	assert.Equal(t, 5, got.MinutesRemaining)
	assert.Equal(t, "5m", got.Display)
	assert.True(t, got.Notified)
	assert.Contains(t, got.Tooltip, "Remaining: 5m")

	rec = doJSON(t, router, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display":"5m"`)
}

func TestShiftValidation(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad start", `{"start":"25:00","leave":"17:00"}`},
		{"bad leave", `{"start":"08:00","leave":"17:61"}`},
		{"negative notify", `{"start":"08:00","leave":"17:00","notify_before_minutes":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/shift", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	doJSON(t, router, http.MethodPost, "/api/shift", `{"start":"08:00","leave":"09:05"}`)
	rec := doJSON(t, router, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"minutes_remaining":60`)
}

func TestIndicatorPNG(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	rec := doJSON(t, router, http.MethodGet, "/indicator.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing rendered yet")

	doJSON(t, router, http.MethodPost, "/api/shift", `{"start":"08:00","leave":"17:00"}`)

	rec = doJSON(t, router, http.MethodGet, "/indicator.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestReportFetchEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<Report><StartTime>08:05</StartTime></Report>`))
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/fetch", `{"employee_id":"4711"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Success      bool   `json:"success"`
		EntranceTime string `json:"entrance_time"`
		Source       string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "08:05", got.EntranceTime)
	assert.Equal(t, "tag", got.Source)
}

func TestReportFetchErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/fetch", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		s := newTestServer(t, "http://localhost:1")
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/fetch", `{"date":"29.08.2026"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := upstream.URL
		upstream.Close()

		s := newTestServer(t, url)
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/fetch", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Cannot connect")
	})

	t.Run("no time in payload", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("nothing useful"))
		}))
		defer upstream.Close()

		s := newTestServer(t, upstream.URL)
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/fetch", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestReportTestEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/report/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Connection successful."}`, rec.Body.String())
}
