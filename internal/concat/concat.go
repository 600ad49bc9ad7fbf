// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package concat implements C6 (spec.md §4.6): walks cards in repeat
// order, streaming PCM slices and calibrated pauses to a raw output
// stream while building the parallel caption list. Grounded on the
// teacher's sequential-writer-with-running-cursor shape in
// internal/audio/recorder (append-only stream, one running byte offset).
package concat

import (
	"io"

	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/jobstate"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
)

const silentSegmentPauseSec = 0.2

// Options configures a Concatenator from the recognized configuration
// surface (spec.md §6).
type Options struct {
	RepeatCount                int
	ExtraDelaySec              float64
	FileSegmentDelayMultiplier float64
	CapOriginalPause           bool
	OriginalPauseCapSec        float64
	BatchBreakSec              int
	EdgeStepSec                float64
	EndSilenceSec              float64
}

// Result is what the Concatenator hands to the Timeline Finalizer: the
// planned total duration and the emitted captions (spec.md §3 "Caption").
type Result struct {
	PlannedTotalMs int64
	Captions       []model.Caption
}

// Concatenator streams PCM and builds captions for C7 (C6).
type Concatenator struct {
	opts      Options
	artifacts *jobstate.ArtifactTable
	pauses    *jobstate.PauseTable
	master    *jobstate.MasterHeader
}

func New(opts Options, artifacts *jobstate.ArtifactTable, pauses *jobstate.PauseTable, master *jobstate.MasterHeader) *Concatenator {
	return &Concatenator{opts: opts, artifacts: artifacts, pauses: pauses, master: master}
}

// strategyPreference is the fixed strategy-selection order (spec.md §4.6
// step 2: "preference order FileCut → SingleCloud → BatchCloud").
var strategyPreference = []model.Strategy{model.StrategyFileCut, model.StrategySingleCloud, model.StrategyBatchCloud}

// Run walks cards in input order, repeating each non-Description card
// opts.RepeatCount times, and writes the assembled stream to w (spec.md
// §4.6).
func (c *Concatenator) Run(w io.Writer, cards []*model.Card) (Result, error) {
	header, ok := c.master.Get()
	if !ok {
		header = model.DefaultMasterHeader
	}

	var cursorMs int64
	var captions []model.Caption
	captionIndex := 0

	for _, card := range cards {
		repeat := c.opts.RepeatCount
		if card.IsDescription {
			repeat = 1
		}
		if repeat < 1 {
			repeat = 1
		}

		for iter := 0; iter < repeat; iter++ {
			for _, sg := range card.Subgroups {
				startMs := cursorMs
				contentMs, dominant, err := c.emitSubgroupContent(w, sg, header, &cursorMs)
				if err != nil {
					return Result{}, err
				}

				if contentMs > 0 {
					captionIndex++
					captions = append(captions, model.Caption{
						StartMs: startMs,
						EndMs:   cursorMs,
						Text:    sg.CaptionText,
						Index:   captionIndex,
					})
				}

				pauseMs := c.interSubgroupPauseMs(sg, contentMs, dominant)
				if pauseMs > 0 {
					if err := c.emitSilence(w, pauseMs, header, &cursorMs); err != nil {
						return Result{}, err
					}
				}
			}
		}
	}

	endSilenceMs := int64(c.opts.EndSilenceSec * 1000)
	if endSilenceMs > 0 {
		if err := c.emitSilence(w, endSilenceMs, header, &cursorMs); err != nil {
			return Result{}, err
		}
	}

	return Result{PlannedTotalMs: cursorMs, Captions: captions}, nil
}

// emitSubgroupContent writes every segment in sg and returns the content
// duration in ms plus the dominant strategy used (spec.md §4.6 steps 1-2).
func (c *Concatenator) emitSubgroupContent(w io.Writer, sg *model.Subgroup, header model.WAVHeader, cursorMs *int64) (int64, model.Strategy, error) {
	var contentMs int64
	strategyCounts := make(map[model.Strategy]int)

	for _, seg := range sg.Segments {
		if seg.Silent {
			before := *cursorMs
			if err := c.emitSilence(w, int64(silentSegmentPauseSec*1000), header, cursorMs); err != nil {
				return 0, 0, err
			}
			contentMs += *cursorMs - before
			continue
		}

		strat, variant := selectVariant(seg)
		if variant == nil {
			continue
		}
		strategyCounts[strat]++

		artifact, ok := c.artifacts.Get(variant.ArtifactKey)
		if !ok {
			return 0, 0, errs.ForSegment(errs.InvariantError, seg.Text, nil)
		}
		if !artifact.Header.Equal(header) {
			return 0, 0, errs.New(errs.InvariantError, "artifact header disagrees with master header", nil)
		}

		window := sliceWindow(artifact, variant, header)
		if len(window)%header.BytesPerFrame() != 0 {
			return 0, 0, errs.New(errs.InvariantError, "emitted slice is not frame-aligned", nil)
		}
		if _, err := w.Write(window); err != nil {
			return 0, 0, err
		}
		durMs := pcm.DurationMsForBytes(len(window), header)
		*cursorMs += durMs
		contentMs += durMs
	}

	return contentMs, dominantStrategy(strategyCounts), nil
}

// selectVariant picks the concrete strategy for a segment, preferring
// FileCut, then SingleCloud, then BatchCloud (spec.md §4.6 step 2).
func selectVariant(seg *model.Segment) (model.Strategy, *model.SegmentVariant) {
	for _, strat := range strategyPreference {
		if v := seg.VariantFor(strat); v != nil {
			return strat, v
		}
	}
	return 0, nil
}

// dominantStrategy returns the strategy with the most segments in a
// subgroup, used to pick the pause multiplier and batch compensation
// (spec.md §4.6 step 3). FileCut wins ties since it is checked first.
func dominantStrategy(counts map[model.Strategy]int) model.Strategy {
	best := model.StrategyBatchCloud
	bestCount := -1
	for _, strat := range strategyPreference {
		if counts[strat] > bestCount {
			best = strat
			bestCount = counts[strat]
		}
	}
	return best
}

// sliceWindow returns the artifact bytes the variant's window describes,
// clipped to the artifact and floor-aligned to frame boundaries (spec.md
// §4.6 step 2). SingleCloud variants carry no window and always yield the
// whole artifact, as does any variant without a valid window.
func sliceWindow(a model.Artifact, v *model.SegmentVariant, header model.WAVHeader) []byte {
	if v.Strategy == model.StrategySingleCloud || !v.HasValidWindow() {
		return a.PCM
	}
	start := pcm.FramesForDuration(v.StartTimeSec, header)
	end := pcm.FramesForDuration(v.EndTimeSec, header)
	if start < 0 {
		start = 0
	}
	if end > len(a.PCM) {
		end = len(a.PCM)
	}
	if start >= end {
		return nil
	}
	return a.PCM[start:end]
}

// interSubgroupPauseMs computes the pause to insert after a subgroup
// (spec.md §4.6 step 3).
func (c *Concatenator) interSubgroupPauseMs(sg *model.Subgroup, contentMs int64, dominant model.Strategy) int64 {
	if sg.Pause.Kind == model.PauseFixed {
		return int64(sg.Pause.FixedSec * 1000)
	}

	multiplier := 1.0
	if dominant == model.StrategyFileCut {
		multiplier = c.opts.FileSegmentDelayMultiplier
	}
	pauseSec := float64(contentMs)/1000.0*multiplier + c.opts.ExtraDelaySec

	if sg.Pause.IsOriginal && c.opts.CapOriginalPause && pauseSec > c.opts.OriginalPauseCapSec {
		pauseSec = c.opts.OriginalPauseCapSec
	}

	if dominant == model.StrategyBatchCloud {
		pauseSec += -float64(c.opts.BatchBreakSec) + 2*c.opts.EdgeStepSec
	}

	if pauseSec < 0 {
		pauseSec = 0
	}
	return int64(pauseSec * 1000)
}

func (c *Concatenator) emitSilence(w io.Writer, durationMs int64, header model.WAVHeader, cursorMs *int64) error {
	if durationMs <= 0 {
		return nil
	}
	silence := c.pauses.Silence(durationMs, header)
	if _, err := w.Write(silence); err != nil {
		return err
	}
	*cursorMs += pcm.DurationMsForBytes(len(silence), header)
	return nil
}
