// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command langtrack is the CLI surface described in spec.md §6: it takes
// an input-script path and a "create video" toggle, runs the media
// assembly pipeline, and exits 0 on success or non-zero on any fatal
// error. Grounded on examples/sip-test/main.go's shape: flag parsing,
// context.WithCancel plus SIGINT/SIGTERM handling, log.Fatalf used only
// outside run, where no structured logger exists.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rapidaai/langtrack/internal/capability/googletts"
	"github.com/rapidaai/langtrack/internal/capability/opusdecoder"
	"github.com/rapidaai/langtrack/internal/capability/silerovad"
	"github.com/rapidaai/langtrack/internal/concat"
	"github.com/rapidaai/langtrack/internal/config"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/job"
	"github.com/rapidaai/langtrack/internal/jobstore"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/notify"
	"github.com/rapidaai/langtrack/internal/planner"
	"github.com/rapidaai/langtrack/internal/populate"
	"github.com/rapidaai/langtrack/pkg/commons"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"
)

func main() {
	scriptPath := flag.String("script", "", "path to the input phrase script (JSON)")
	prefix := flag.String("prefix", "lesson", "output file prefix: <output_dir>/<prefix>.{wav,srt}")
	createVideo := flag.Bool("video", false, "mux a video alongside the audio/subtitle pair")
	vadModelPath := flag.String("vad-model", "silero_vad.onnx", "path to the Silero VAD ONNX model")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatalf("langtrack: -script is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("langtrack: shutting down...")
		cancel()
	}()

	if err := run(ctx, *scriptPath, *prefix, *createVideo, *vadModelPath); err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			log.Fatalf("langtrack: %s: %v", e.Kind, e)
		}
		log.Fatalf("langtrack: %v", err)
	}
}

// scriptPhrase is the convenience JSON shape the CLI reads from -script.
// Phrase-file parsing itself is out of this repository's scope (spec.md
// §3, "produced by the external phrase parser"); this is only the glue
// that lets the binary run standalone, so it stays on encoding/json
// rather than reaching for a richer format the pack has no stake in.
type scriptPhrase struct {
	Description    string  `json:"description"`
	Original       string  `json:"original"`
	Translation    string  `json:"translation"`
	HasTranslation bool    `json:"hasTranslation"`
	IntervalStart  float64 `json:"intervalStart"`
	IntervalEnd    float64 `json:"intervalEnd"`
	IntervalFile   string  `json:"intervalFile"`
}

func loadPhrases(path string) ([]model.Phrase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ForFile(errs.InputError, path, err)
	}
	var raw []scriptPhrase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.ForFile(errs.InputError, path, err)
	}

	phrases := make([]model.Phrase, 0, len(raw))
	for _, r := range raw {
		p := model.Phrase{
			Original:       r.Original,
			Translation:    r.Translation,
			HasTranslation: r.HasTranslation,
			Description:    r.Description,
			Interval: model.SubtitleInterval{
				StartSec: r.IntervalStart,
				EndSec:   r.IntervalEnd,
				FileKey:  r.IntervalFile,
			},
		}
		if r.Description != "" {
			p.Kind = model.PhraseDescription
		} else {
			p.Kind = model.PhrasePair
		}
		phrases = append(phrases, p)
	}
	return phrases, nil
}

func run(ctx context.Context, scriptPath, prefix string, createVideo bool, vadModelPath string) error {
	v, err := config.InitViper()
	if err != nil {
		return errs.New(errs.ConfigError, "viper", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return errs.New(errs.ConfigError, "load", err)
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	logger, err := commons.NewApplicationLoggerAt(level)
	if err != nil {
		return errs.New(errs.ConfigError, "logger", err)
	}
	defer logger.Sync()

	phrases, err := loadPhrases(scriptPath)
	if err != nil {
		return err
	}

	synth, err := googletts.New(ctx, option.WithoutAuthentication())
	if err != nil {
		return errs.New(errs.ConfigError, "texttospeech client", err)
	}
	defer synth.Close()

	decoder := opusdecoder.New(int(model.DefaultMasterHeader.SampleRate))
	detector := silerovad.New(vadModelPath)

	store, err := jobstore.Open(cfg.JobStore.DSN)
	if err != nil {
		logger.Warnf("job history store unavailable, continuing without it: %v", err)
		store = nil
	}

	notifier, err := notify.New(logger, cfg.Notify.Provider, cfg.Notify.SESRegion, cfg.Notify.SenderAddress, cfg.Notify.RecipientAddress, cfg.SendgridAPIKey)
	if err != nil {
		logger.Warnf("notifier unavailable, continuing without it: %v", err)
		notifier = notify.Noop{}
	}

	voicePolicy := config.DefaultVoicePolicy(cfg.TTSRatePerLanguage)

	o := job.New(logger, cfg, job.Deps{
		Synthesizer: synth,
		Decoder:     decoder,
		Detector:    detector,
		ResolveFile: func(fileKey string) (string, error) { return fileKey, nil },
		Store:       store,
		Notifier:    notifier,
	}, job.Options{
		Prefix: prefix,
		PlannerOptions: planner.Options{
			DefaultLanguage:  model.LanguageGerman,
			AllowTranslation: cfg.AllowTranslation,
		},
		ConcatOptions: concatOptionsFromConfig(cfg),
		PopulateOptions: populateOptionsFromConfig(cfg, voicePolicy),
		CreateVideo:     createVideo,
	})

	result, err := o.Run(ctx, phrases)
	if err != nil {
		return err
	}

	logger.Infof("langtrack: wrote %s and %s (%d warnings)", result.WAVPath, result.SRTPath, len(result.Warnings))
	return nil
}

func concatOptionsFromConfig(cfg *config.AppConfig) concat.Options {
	return concat.Options{
		RepeatCount:                cfg.RepeatCount,
		ExtraDelaySec:              cfg.ExtraDelaySec,
		FileSegmentDelayMultiplier: cfg.FileSegmentDelayMultiplier,
		CapOriginalPause:           cfg.CapOriginalPause,
		OriginalPauseCapSec:        cfg.OriginalPauseCapSec,
		BatchBreakSec:              cfg.BatchBreakSec,
		EdgeStepSec:                cfg.EdgeStepSec,
		EndSilenceSec:              cfg.EndSilenceSec,
	}
}

func populateOptionsFromConfig(cfg *config.AppConfig, voicePolicy config.VoicePolicy) populate.Options {
	return populate.Options{
		BatchBreakSec:      cfg.BatchBreakSec,
		EdgeStepSec:        cfg.EdgeStepSec,
		MaxSSMLLength:      cfg.MaxSSMLLength,
		AmplitudeThreshold: cfg.AmplitudeThreshold,
		MinSilenceSec:      cfg.MinSilenceSec,
		VoicePolicy:        voicePolicy,
		// Paired with the opusdecoder.Decoder wired into job.Deps above:
		// the synthesizer is asked for the same codec the decoder expects.
		SynthEncoding: "OGG_OPUS",
	}
}
