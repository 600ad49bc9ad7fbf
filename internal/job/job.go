// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package job implements C8 (spec.md §4.8): drives C4→C5→C6→C7 through a
// linear state machine, manages the temp workspace lifecycle, and
// enforces the error policy (on failure, partial outputs are removed, the
// temp workspace is deleted, and on-disk caches are preserved). Grounded
// on the teacher's request-lifecycle shape (construct once, run once,
// clean up on any exit path) seen in its adapter/orchestrator
// constructors, generalized here into a one-shot batch job rather than a
// long-lived call handler.
package job

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/concat"
	"github.com/rapidaai/langtrack/internal/config"
	"github.com/rapidaai/langtrack/internal/distlock"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/jobstate"
	"github.com/rapidaai/langtrack/internal/jobstore"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/notify"
	"github.com/rapidaai/langtrack/internal/planner"
	"github.com/rapidaai/langtrack/internal/populate"
	"github.com/rapidaai/langtrack/internal/silencecache"
	"github.com/rapidaai/langtrack/internal/timeline"
	"github.com/rapidaai/langtrack/internal/ttscache"
	"github.com/rapidaai/langtrack/pkg/commons"
)

// State is one stage of the job state machine (spec.md §4.8).
type State int

const (
	StatePlanning State = iota
	StatePopulating
	StateAssembling
	StateFinalizing
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StatePopulating:
		return "populating"
	case StateAssembling:
		return "assembling"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Deps are the injected capabilities the orchestrator constructs its
// components with for the job's lifetime (spec.md §9 "injected
// capabilities, owned for the job's lifetime").
type Deps struct {
	Synthesizer capability.Synthesizer
	Decoder     capability.Decoder
	Detector    capability.SilenceDetector

	// VideoMuxer is an optional extension seam; nil by default (spec.md
	// §1 video muxing is out of scope).
	VideoMuxer capability.VideoMuxer

	ResolveFile populate.FileResolver

	// Store and Notifier are additive, read-only-from-the-pipeline's
	// perspective observers (SPEC_FULL.md §11-12). A nil Store or a
	// notify.Noop Notifier makes both entirely inert.
	Store    *jobstore.Store
	Notifier notify.Notifier
}

// Options configures one job run.
type Options struct {
	// Prefix names the output pair <output_dir>/<prefix>.{wav,srt}
	// (spec.md §6 "Outputs produced").
	Prefix string

	PlannerOptions  planner.Options
	PopulateOptions populate.Options
	ConcatOptions   concat.Options

	// CreateVideo requests the optional video-mux step when a VideoMuxer
	// is injected (SPEC_FULL.md §12).
	CreateVideo bool
}

// Result is the outcome of a completed job.
type Result struct {
	Warnings       []string
	WAVPath        string
	SRTPath        string
	VideoPath      string
	PlannedTotalMs int64
	ActualMs       int64
	ScaleFactor    float64
	ScaleApplied   bool
}

// Orchestrator drives one job end to end (C8).
type Orchestrator struct {
	logger commons.Logger
	cfg    *config.AppConfig
	deps   Deps
	opts   Options
	state  State
}

func New(logger commons.Logger, cfg *config.AppConfig, deps Deps, opts Options) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	return &Orchestrator{logger: logger, cfg: cfg, deps: deps, opts: opts}
}

// State reports the orchestrator's current stage.
func (o *Orchestrator) State() State {
	return o.state
}

// Run drives Planning→Populating→Assembling→Finalizing→Complete for one
// phrase list, or transitions to Failed and cleans up on any error
// (spec.md §4.8).
func (o *Orchestrator) Run(ctx context.Context, phrases []model.Phrase) (result Result, err error) {
	jobID := uuid.New().String()
	tempDir := filepath.Join(o.cfg.Paths.TempDir, jobID)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.ConfigError, tempDir, err)
	}

	runID, _ := o.deps.Store.RecordStart(ctx, o.opts.Prefix)

	rawPath := filepath.Join(tempDir, "combined_raw.pcm")
	wavPath := filepath.Join(o.cfg.Paths.OutputDir, o.opts.Prefix+".wav")
	srtPath := filepath.Join(o.cfg.Paths.OutputDir, o.opts.Prefix+".srt")

	succeeded := false
	defer func() {
		if succeeded {
			o.deps.Store.RecordComplete(ctx, runID, result.PlannedTotalMs, result.ActualMs, result.ScaleApplied, len(result.Warnings))
		} else {
			o.deps.Store.RecordFailure(ctx, runID, err)
		}
		if nerr := o.deps.Notifier.Notify(ctx, notify.Notification{
			JobID:     jobID,
			Prefix:    o.opts.Prefix,
			Succeeded: succeeded,
			WAVPath:   wavPath,
			SRTPath:   srtPath,
			Warnings:  result.Warnings,
			Err:       err,
		}); nerr != nil {
			o.logger.Warnf("job %s: completion notification failed: %v", jobID, nerr)
		}
	}()
	defer func() {
		os.RemoveAll(tempDir)
		if !succeeded {
			os.Remove(wavPath)
			os.Remove(srtPath)
		}
	}()

	o.state = StatePlanning
	pl := planner.New(o.logger, o.opts.PlannerOptions)
	cards, plan := pl.BuildCards(phrases)

	o.state = StatePopulating
	artifacts := jobstate.NewArtifactTable()
	master := &jobstate.MasterHeader{}
	pauseTable := jobstate.NewPauseTable()

	var locker distlock.Locker = distlock.Noop{}
	if o.cfg.RedisAddr != "" {
		redisLocker := distlock.New(o.cfg.RedisAddr)
		defer redisLocker.Close()
		locker = redisLocker
	}

	popOpts := o.opts.PopulateOptions
	popOpts.ResolveFile = o.deps.ResolveFile
	pop := populate.New(o.logger, popOpts, populate.Deps{
		Synthesizer:  o.deps.Synthesizer,
		Decoder:      o.deps.Decoder,
		Detector:     o.deps.Detector,
		TTSCache:     ttscache.NewWithLocker(o.cfg.Paths.TTSCacheDir, locker),
		SilenceCache: silencecache.NewWithLocker(o.cfg.Paths.SilenceCacheDir, locker),
		Artifacts:    artifacts,
		Master:       master,
		TempDir:      tempDir,
	})

	if err := pop.Run(ctx, plan); err != nil {
		o.state = StateFailed
		return Result{}, err
	}

	o.state = StateAssembling
	rawFile, err := os.Create(rawPath)
	if err != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.ConfigError, rawPath, err)
	}
	cc := concat.New(o.opts.ConcatOptions, artifacts, pauseTable, master)
	concatResult, err := cc.Run(rawFile, cards)
	closeErr := rawFile.Close()
	if err != nil {
		o.state = StateFailed
		return Result{}, err
	}
	if closeErr != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.ConfigError, rawPath, closeErr)
	}

	o.state = StateFinalizing
	if err := os.MkdirAll(o.cfg.Paths.OutputDir, 0o755); err != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.ConfigError, o.cfg.Paths.OutputDir, err)
	}

	masterHeader, ok := master.Get()
	if !ok {
		masterHeader = model.DefaultMasterHeader
	}
	finResult, err := timeline.FinalizeWAV(rawPath, wavPath, masterHeader)
	if err != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.FormatError, wavPath, err)
	}

	scale, applied := timeline.ScaleFactor(finResult.ActualMs, concatResult.PlannedTotalMs)
	if err := timeline.WriteSRT(srtPath, concatResult.Captions, scale, applied); err != nil {
		o.state = StateFailed
		return Result{}, errs.New(errs.FormatError, srtPath, err)
	}

	result = Result{
		Warnings:       append(append([]string{}, pl.Warnings...), pop.Warnings...),
		WAVPath:        wavPath,
		SRTPath:        srtPath,
		PlannedTotalMs: concatResult.PlannedTotalMs,
		ActualMs:       finResult.ActualMs,
		ScaleFactor:    scale,
		ScaleApplied:   applied,
	}

	if o.opts.CreateVideo && o.deps.VideoMuxer != nil {
		videoPath := filepath.Join(o.cfg.Paths.OutputDir, o.opts.Prefix+".mp4")
		if err := o.deps.VideoMuxer.MuxVideo(ctx, wavPath, srtPath, videoPath); err != nil {
			o.state = StateFailed
			return Result{}, errs.New(errs.ConfigError, videoPath, err)
		}
		result.VideoPath = videoPath
	}

	o.state = StateComplete
	succeeded = true
	return result, nil
}
