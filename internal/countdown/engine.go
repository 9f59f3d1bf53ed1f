// SPDX-License-Identifier: MIT

// Package countdown drives the leave-time countdown: it owns the active
// shift, re-evaluates the remaining time on a fixed tick, keeps the tray
// indicator current, and fires the threshold notification exactly once per
// leave value.
package countdown

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mleitner/leavetray/internal/clock"
	"github.com/mleitner/leavetray/internal/log"
	"github.com/mleitner/leavetray/internal/metrics"
	"github.com/mleitner/leavetray/internal/timeutil"
)

// DefaultTickInterval is the re-evaluation cadence while a shift is active.
const DefaultTickInterval = 60 * time.Second

// Shift is the submitted workday configuration. Leave is the authoritative
// target; Start is informational and only shown in the tooltip.
type Shift struct {
	Start        timeutil.Clock
	Leave        timeutil.Clock
	NotifyBefore int // minutes; 0 disables the notification
}

// Sink receives presentation updates. The engine does not know how they are
// displayed.
type Sink interface {
	UpdateTooltip(text string)
	UpdateBitmap(img image.Image)
}

// Notifier delivers the one-shot threshold notification.
type Notifier interface {
	Notify(title, body string) error
}

// RenderFunc produces an indicator bitmap for a short label.
type RenderFunc func(label string) (image.Image, error)

// Status is a snapshot of the engine state for the host API.
type Status struct {
	Active              bool      `json:"active"`
	Start               string    `json:"start,omitempty"`
	Leave               string    `json:"leave,omitempty"`
	NotifyBeforeMinutes int       `json:"notify_before_minutes"`
	MinutesRemaining    int       `json:"minutes_remaining"`
	Remaining           string    `json:"remaining"`
	Display             string    `json:"display"`
	Notified            bool      `json:"notified"`
	LastEvaluated       time.Time `json:"last_evaluated,omitzero"`
}

// Options configure a new Engine. Zero values select the system clock and
// the default tick interval.
type Options struct {
	Clock        clock.Clock
	Sink         Sink
	Notifier     Notifier
	Render       RenderFunc
	TickInterval time.Duration
}

// Engine is the countdown state machine. It is Idle until the first Submit
// and Active for the rest of the process lifetime afterwards.
type Engine struct {
	clk      clock.Clock
	sink     Sink
	notifier Notifier
	render   RenderFunc
	interval time.Duration
	log      zerolog.Logger

	mu          sync.Mutex // guards the fields below
	active      bool
	shift       Shift
	fired       bool
	firedLeave  timeutil.Clock
	lastDisplay string
	lastMinutes int
	lastEval    time.Time
	stopTick    chan struct{}

	evalMu sync.Mutex // single in-flight evaluation; busy ticks are skipped
}

// New builds an Engine in the Idle state.
func New(opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System()
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		clk:      clk,
		sink:     opts.Sink,
		notifier: opts.Notifier,
		render:   opts.Render,
		interval: interval,
		log:      log.WithComponent("countdown"),
	}
}

// Submit replaces the active shift wholesale, evaluates once immediately,
// and re-arms the periodic tick. The notification guard is reset only when
// the leave value differs from the previously stored one; resubmitting the
// same leave keeps an already-fired notification fired.
func (e *Engine) Submit(s Shift) {
	e.mu.Lock()
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
	if !e.active || e.shift.Leave != s.Leave {
		e.fired = false
		e.firedLeave = timeutil.Clock{}
	}
	e.shift = s
	e.active = true
	stop := make(chan struct{})
	e.stopTick = stop
	e.mu.Unlock()

	e.log.Info().
		Str("event", "engine.submit").
		Str("start", s.Start.String()).
		Str("leave", s.Leave.String()).
		Int("notify_before", s.NotifyBefore).
		Msg("shift submitted")

	e.evaluate()

	go e.tickLoop(stop)
}

// Refresh performs a manual evaluation. It is idempotent with the periodic
// tick and a no-op while Idle.
func (e *Engine) Refresh() {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if active {
		e.evaluate()
	}
}

// Stop cancels the periodic tick. It exists for process shutdown and tests;
// there is no teardown transition in normal operation.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// Status returns a snapshot of the last evaluation.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Active:              e.active,
		NotifyBeforeMinutes: e.shift.NotifyBefore,
		MinutesRemaining:    e.lastMinutes,
		Remaining:           timeutil.FormatDuration(e.lastMinutes),
		Display:             e.lastDisplay,
		Notified:            e.fired,
		LastEvaluated:       e.lastEval,
	}
	if e.active {
		st.Start = e.shift.Start.String()
		st.Leave = e.shift.Leave.String()
	}
	return st
}

func (e *Engine) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.evaluate()
		case <-stop:
			return
		}
	}
}

// evaluate runs one evaluation cycle: recompute remaining time, refresh the
// tooltip, re-render the badge only when the short text changed, and apply
// the notification policy. A cycle arriving while another is in flight is
// skipped, mirroring the renderer's own single-in-flight rule.
func (e *Engine) evaluate() {
	if !e.evalMu.TryLock() {
		metrics.EvaluationSkipped()
		e.log.Debug().Str("event", "engine.tick_skipped").Msg("evaluation already in flight")
		return
	}
	defer e.evalMu.Unlock()

	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	shift := e.shift
	lastDisplay := e.lastDisplay
	e.mu.Unlock()

	now := e.clk.Now()
	minutes := timeutil.MinutesUntil(now, shift.Leave)
	display := timeutil.FormatShort(minutes)
	full := timeutil.FormatDuration(minutes)

	// The tooltip is cheap and always refreshed; the bitmap involves a
	// render round trip and is only redone when the text changed.
	e.sink.UpdateTooltip(fmt.Sprintf("Start: %s  →  Leave: %s\nRemaining: %s",
		shift.Start, shift.Leave, full))

	rendered := false
	if display != lastDisplay {
		img, err := e.render(display)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("event", "engine.render_failed").
				Str("label", display).
				Msg("badge render failed, keeping previous bitmap")
		} else {
			e.sink.UpdateBitmap(img)
			rendered = true
		}
	}

	notify := false
	e.mu.Lock()
	if rendered {
		e.lastDisplay = display
	}
	e.lastMinutes = minutes
	e.lastEval = now
	if shift.NotifyBefore > 0 &&
		minutes <= shift.NotifyBefore &&
		!(e.fired && e.firedLeave == shift.Leave) {
		e.fired = true
		e.firedLeave = shift.Leave
		notify = true
	}
	e.mu.Unlock()

	if notify {
		e.sendNotification(shift, full)
	}

	metrics.Evaluation(minutes)
	e.log.Debug().
		Str("event", "engine.evaluate").
		Int("minutes_remaining", minutes).
		Str("display", display).
		Bool("rendered", rendered).
		Bool("notified", notify).
		Msg("evaluation cycle complete")
}

// sendNotification delivers the threshold notification. Failures are logged
// and swallowed; a failed delivery must never disrupt the tick and does not
// re-arm the guard.
func (e *Engine) sendNotification(shift Shift, remaining string) {
	body := fmt.Sprintf("%s remaining. You can leave at %s.", remaining, shift.Leave)
	if err := e.notifier.Notify("My Leave Time", body); err != nil {
		metrics.Notification("failed")
		e.log.Warn().
			Err(err).
			Str("event", "engine.notify_failed").
			Msg("notification delivery failed")
		return
	}
	metrics.Notification("sent")
	e.log.Info().
		Str("event", "engine.notify").
		Str("leave", shift.Leave.String()).
		Msg("leave-time notification sent")
}
