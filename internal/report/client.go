// SPDX-License-Identifier: MIT

// Package report fetches a rendered attendance report from an SSRS-style
// report server and extracts the day's entrance time from the response.
package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mleitner/leavetray/internal/extract"
	"github.com/mleitner/leavetray/internal/log"
	"github.com/mleitner/leavetray/internal/metrics"
)

const (
	fetchTimeout = 30 * time.Second
	probeTimeout = 10 * time.Second

	// maxBodyBytes bounds how much of a rendered report is read; entrance
	// time reports are tiny, anything larger is a misconfigured path.
	maxBodyBytes = 4 << 20
)

// Config holds the connection settings for one report server.
type Config struct {
	ServerURL         string
	ReportPath        string
	Username          string
	Password          string
	Domain            string
	UseIntegratedAuth bool
}

// FetchOptions narrow the report rendering to one employee and day.
type FetchOptions struct {
	EmployeeID string
	Date       string // YYYY-MM-DD; defaults to today when empty
}

// Probe is the outcome of a connectivity test. Failures are folded into the
// message; TestConnection never returns an error.
type Probe struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

// Client issues report requests against one configured server. A single
// request is issued per call; there is no retry policy.
type Client struct {
	cfg   Config
	http  *http.Client
	probe *http.Client
	log   zerolog.Logger
	now   func() time.Time
}

// New builds a Client for the given connection settings.
func New(cfg Config) *Client {
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.ReportPath = strings.TrimSpace(cfg.ReportPath)
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: fetchTimeout},
		probe: &http.Client{Timeout: probeTimeout},
		log:   log.WithComponent("report"),
		now:   time.Now,
	}
}

// FetchEntranceTime renders the configured report and extracts an HH:MM
// entrance time from the response body. Transport and configuration
// failures come back as *Error; an unparseable body comes back as an
// extraction error, so callers can tell "server unreachable" from "server
// reachable but payload unusable".
func (c *Client) FetchEntranceTime(ctx context.Context, opts FetchOptions) (extract.Match, error) {
	start := c.now()

	target, err := c.reportURL("XML", opts)
	if err != nil {
		metrics.ReportFetch("config_error", c.now().Sub(start))
		return extract.Match{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		metrics.ReportFetch("config_error", c.now().Sub(start))
		return extract.Match{}, &Error{Sentinel: ErrNotConfigured, Operation: "fetch", Err: err}
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		rerr := translate("fetch", err)
		c.log.Warn().Err(rerr).Str("event", "report.fetch_failed").Msg("report request failed")
		metrics.ReportFetch("transport_error", c.now().Sub(start))
		return extract.Match{}, rerr
	}
	defer res.Body.Close() //nolint:errcheck

	if rerr := statusError("fetch", res.StatusCode); rerr != nil {
		c.log.Warn().
			Int("status", res.StatusCode).
			Str("event", "report.fetch_failed").
			Msg("report server rejected request")
		metrics.ReportFetch("transport_error", c.now().Sub(start))
		return extract.Match{}, rerr
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		metrics.ReportFetch("transport_error", c.now().Sub(start))
		return extract.Match{}, translate("fetch", err)
	}

	kind := extract.KindForContentType(res.Header.Get("Content-Type"))
	match, err := extract.Extract(body, kind)
	if err != nil {
		c.log.Warn().
			Err(err).
			Stringer("kind", kind).
			Str("event", "report.extract_failed").
			Msg("no entrance time in report response")
		metrics.ReportFetch("extract_error", c.now().Sub(start))
		return extract.Match{}, err
	}

	c.log.Info().
		Str("event", "report.fetch_success").
		Str("time", match.Time).
		Str("source", string(match.Source)).
		Stringer("kind", kind).
		Msg("entrance time extracted")
	metrics.ReportFetch("success", c.now().Sub(start))
	return match, nil
}

// TestConnection probes the report server root. It reports the outcome as
// data rather than an error so the host can show the message directly.
func (c *Client) TestConnection(ctx context.Context) Probe {
	if c.cfg.ServerURL == "" {
		return Probe{OK: false, Message: "Server URL is required."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ServerURL+"/ReportServer", nil)
	if err != nil {
		return Probe{OK: false, Message: "Server URL is not a valid URL."}
	}
	c.authorize(req)

	res, err := c.probe.Do(req)
	if err != nil {
		rerr := translate("test", err)
		var re *Error
		if errors.As(rerr, &re) {
			return Probe{OK: false, Message: re.Message()}
		}
		return Probe{OK: false, Message: "Connection failed."}
	}
	defer res.Body.Close() //nolint:errcheck

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return Probe{OK: false, Message: "Authentication failed."}
	case res.StatusCode >= 400:
		return Probe{OK: false, Message: fmt.Sprintf("Server error: %d", res.StatusCode)}
	default:
		return Probe{OK: true, Message: "Connection successful."}
	}
}

// reportURL builds the report-execution URL. SSRS expects the report path
// as the value of the unnamed "/" parameter, plus rs:Format and
// rs:Command=Render for direct rendering.
func (c *Client) reportURL(format string, opts FetchOptions) (string, error) {
	if c.cfg.ServerURL == "" || c.cfg.ReportPath == "" {
		return "", &Error{Sentinel: ErrNotConfigured, Operation: "build-url"}
	}

	date := opts.Date
	if date == "" {
		date = c.now().Format("2006-01-02")
	}

	params := url.Values{}
	params.Set("/", c.cfg.ReportPath)
	params.Set("rs:Format", format)
	params.Set("rs:Command", "Render")
	if opts.EmployeeID != "" {
		params.Set("EmployeeId", opts.EmployeeID)
	}
	params.Set("Date", date)

	return c.cfg.ServerURL + "/ReportServer?" + params.Encode(), nil
}

// authorize attaches a basic-auth header built from DOMAIN\user:password
// when integrated auth is enabled and credentials are present.
func (c *Client) authorize(req *http.Request) {
	if !c.cfg.UseIntegratedAuth || c.cfg.Username == "" || c.cfg.Password == "" {
		return
	}
	user := c.cfg.Username
	if c.cfg.Domain != "" {
		user = c.cfg.Domain + `\` + user
	}
	creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + c.cfg.Password))
	req.Header.Set("Authorization", "Basic "+creds)
}

// statusError maps HTTP statuses onto the error taxonomy. Statuses below
// 400 mean "received, inspect body".
func statusError(op string, status int) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Sentinel: ErrAuthentication, Operation: op, Status: status}
	case status == http.StatusNotFound:
		return &Error{Sentinel: ErrReportNotFound, Operation: op, Status: status}
	case status >= 400:
		return &Error{Sentinel: ErrServer, Operation: op, Status: status}
	default:
		return nil
	}
}

// translate classifies a transport-level failure into the error taxonomy.
func translate(op string, err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{Sentinel: ErrConnection, Operation: op, Err: err}
	case errors.As(err, &dnsErr):
		return &Error{Sentinel: ErrHostNotFound, Operation: op, Err: err}
	case isTimeout(err):
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	default:
		return &Error{Sentinel: ErrConnection, Operation: op, Err: err}
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
