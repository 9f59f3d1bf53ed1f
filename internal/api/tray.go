// SPDX-License-Identifier: MIT
package api

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// TrayState is the in-process stand-in for the platform tray indicator. It
// implements countdown.Sink and retains the latest tooltip and bitmap so
// the API can expose them; the real tray integration is a platform concern
// outside this core.
type TrayState struct {
	mu      sync.RWMutex
	tooltip string
	bitmap  image.Image
}

// NewTrayState returns an empty tray state.
func NewTrayState() *TrayState {
	return &TrayState{}
}

// UpdateTooltip implements countdown.Sink.
func (t *TrayState) UpdateTooltip(text string) {
	t.mu.Lock()
	t.tooltip = text
	t.mu.Unlock()
}

// UpdateBitmap implements countdown.Sink.
func (t *TrayState) UpdateBitmap(img image.Image) {
	t.mu.Lock()
	t.bitmap = img
	t.mu.Unlock()
}

// Tooltip returns the last tooltip text.
func (t *TrayState) Tooltip() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tooltip
}

// PNG encodes the last rendered bitmap. The boolean is false while nothing
// has been rendered yet.
func (t *TrayState) PNG() ([]byte, bool, error) {
	t.mu.RLock()
	img := t.bitmap
	t.mu.RUnlock()
	if img == nil {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, true, err
	}
	return buf.Bytes(), true, nil
}
