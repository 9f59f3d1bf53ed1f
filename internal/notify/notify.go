// SPDX-License-Identifier: MIT

// Package notify delivers desktop notifications. On hosts with a freedesktop
// notification daemon it shells out to notify-send; everywhere else it
// degrades to a log line so the countdown keeps working headless.
package notify

import (
	"context"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/mleitner/leavetray/internal/log"
)

const sendTimeout = 5 * time.Second

// Desktop sends notifications via notify-send when available.
type Desktop struct {
	binary string
	log    zerolog.Logger
}

// New probes for notify-send once at startup.
func New() *Desktop {
	d := &Desktop{log: log.WithComponent("notify")}
	if path, err := exec.LookPath("notify-send"); err == nil {
		d.binary = path
	} else {
		d.log.Info().
			Str("event", "notify.fallback").
			Msg("notify-send not found, notifications will be log-only")
	}
	return d
}

// Notify delivers one notification. Without a notification binary the
// message is logged instead; that still counts as delivered.
func (d *Desktop) Notify(title, body string) error {
	if d.binary == "" {
		d.log.Info().
			Str("event", "notify.log_only").
			Str("title", title).
			Str("body", body).
			Msg("notification")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, d.binary, "--app-name", "leavetray", title, body)
	return cmd.Run()
}
