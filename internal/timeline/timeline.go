// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package timeline implements C7 (spec.md §4.7): closes the raw PCM
// stream into a finalized WAV with the master header, computes the
// scale factor between planned and actual duration, and writes the
// paired SRT subtitle file. Grounded on the teacher's manual WAV-header
// writer (internal/audio/recorder) for the finalize step, and on
// srt-writing conventions common across the example pack's
// caption/subtitle-adjacent code for the timestamp formatting.
package timeline

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
)

// scaleEpsilon is the tolerance below which a scale factor is treated as
// 1.0 and not applied (spec.md §4.7, ε ≈ 0.01).
const scaleEpsilon = 0.01

// Result reports the finalized duration and the scale factor applied (1.0
// when none was).
type Result struct {
	ActualMs     int64
	ScaleFactor  float64
	ScaleApplied bool
}

// FinalizeWAV prepends a header derived from masterHeader to rawPCMPath's
// bytes and writes the result to outPath (spec.md §4.7).
func FinalizeWAV(rawPCMPath, outPath string, masterHeader model.WAVHeader) (Result, error) {
	frames, err := os.ReadFile(rawPCMPath)
	if err != nil {
		return Result{}, err
	}
	if err := pcm.WriteWAV(outPath, frames, masterHeader); err != nil {
		return Result{}, err
	}

	actualMs := pcm.DurationMsForBytes(len(frames), masterHeader)
	return Result{ActualMs: actualMs, ScaleFactor: 1.0}, nil
}

// ScaleFactor computes actual_ms/planned_cursor_ms, per spec.md §4.7. A
// scale within scaleEpsilon of 1.0 is reported as not applied: callers
// should use 1.0 and leave caption timestamps at their planned values.
func ScaleFactor(actualMs, plannedMs int64) (factor float64, applied bool) {
	if plannedMs <= 0 {
		return 1.0, false
	}
	factor = float64(actualMs) / float64(plannedMs)
	if math.Abs(factor-1.0) < scaleEpsilon {
		return 1.0, false
	}
	return factor, true
}

// WriteSRT writes captions in SRT format to path, scaling timestamps by
// factor when applied (spec.md §4.7, §6 "Outputs produced").
func WriteSRT(path string, captions []model.Caption, factor float64, applied bool) error {
	var b strings.Builder
	for i, c := range captions {
		startMs, endMs := c.StartMs, c.EndMs
		if applied {
			startMs = int64(float64(startMs) * factor)
			endMs = int64(float64(endMs) * factor)
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatTimestamp(startMs), formatTimestamp(endMs), escapeSRT(c.Text))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// formatTimestamp renders an HH:MM:SS,mmm timestamp from a millisecond
// count (spec.md §4.7).
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	ms -= hours * 3600000
	minutes := ms / 60000
	ms -= minutes * 60000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// escapeSRT escapes the two characters SRT readers treat as markup
// (spec.md §6 "Text with < or > is escaped").
func escapeSRT(text string) string {
	r := strings.NewReplacer("<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}
