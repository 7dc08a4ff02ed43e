// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ratelimit

import (
	"testing"
	"time"
)

func TestWindow_SpeedWithinWindow(t *testing.T) {
	clk := newFakeClock()
	w := &Window{size: time.Second, clock: clk}

	w.AddSample(1_048_576) // 1 MiB
	got := w.SpeedMBps()
	if got != 1.0 {
		t.Errorf("expected 1.0 MB/s, got %v", got)
	}
}

func TestWindow_ExpiresOldSamples(t *testing.T) {
	clk := newFakeClock()
	w := &Window{size: time.Second, clock: clk}

	w.AddSample(1_048_576)
	clk.Advance(2 * time.Second)
	w.AddSample(0)

	got := w.SpeedMBps()
	if got != 0 {
		t.Errorf("expected expired sample to not contribute, got %v MB/s", got)
	}
}

func TestWindow_Reset(t *testing.T) {
	clk := newFakeClock()
	w := &Window{size: time.Second, clock: clk}
	w.AddSample(1000)
	w.Reset()
	if got := w.SpeedMBps(); got != 0 {
		t.Errorf("expected 0 after reset, got %v", got)
	}
}
