// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package populate implements C5 (spec.md §4.5): executes the synthesis
// plan built by the planner, realizing FileCut, SingleCloud and BatchCloud
// segments into the shared artifact table. Grounded on the teacher's
// transformer-call idiom (resolve input → call injected collaborator →
// wrap/translate the error → persist) seen throughout
// api/assistant-api/internal/transformer, generalized here from a single
// provider call into the batched SSML protocol spec.md §4.5 describes.
package populate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/config"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/jobstate"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
	"github.com/rapidaai/langtrack/internal/planner"
	"github.com/rapidaai/langtrack/internal/silencecache"
	"github.com/rapidaai/langtrack/internal/ttscache"
	"github.com/rapidaai/langtrack/pkg/commons"
)

// FileResolver resolves a subtitle interval's source audio file key to a
// readable path on disk. The phrase-file parser that produces file keys is
// out of scope (spec.md §1); this is the seam it plugs into.
type FileResolver func(fileKey string) (string, error)

// Options configures a Populator from the recognized configuration surface
// (spec.md §6).
type Options struct {
	BatchBreakSec      int
	EdgeStepSec        float64
	MaxSSMLLength      int
	AmplitudeThreshold float64
	MinSilenceSec      float64
	VoicePolicy        config.VoicePolicy
	ResolveFile        FileResolver

	// SynthEncoding is the wire codec requested from the Synthesizer
	// capability, e.g. "MP3" or "OGG_OPUS" (spec.md §6). Must name one
	// of texttospeechpb.AudioEncoding's values when the googletts
	// adapter is in use. Defaults to "MP3".
	SynthEncoding string
}

func (o Options) synthEncoding() string {
	if o.SynthEncoding == "" {
		return "MP3"
	}
	return o.SynthEncoding
}

// Deps are the injected capabilities and shared job state a Populator
// consumes (spec.md §6 "injected capabilities", §3 "Ownership").
type Deps struct {
	Synthesizer capability.Synthesizer
	Decoder     capability.Decoder
	Detector    capability.SilenceDetector

	TTSCache     *ttscache.Cache
	SilenceCache *silencecache.Cache

	Artifacts *jobstate.ArtifactTable
	Master    *jobstate.MasterHeader

	TempDir string
}

// Populator realizes a plan into the artifact table (C5).
type Populator struct {
	logger   commons.Logger
	opts     Options
	deps     Deps
	Warnings []string

	tmpSeq int
}

func New(logger commons.Logger, opts Options, deps Deps) *Populator {
	return &Populator{logger: logger, opts: opts, deps: deps}
}

// Run processes a plan in the order spec.md §4.5 mandates: per language,
// FileCut, then SingleCloud, then BatchCloud.
func (p *Populator) Run(ctx context.Context, plan planner.Plan) error {
	languages := make(map[string]bool)
	for k := range plan {
		languages[k.LanguageTag] = true
	}
	sortedLangs := make([]string, 0, len(languages))
	for l := range languages {
		sortedLangs = append(sortedLangs, l)
	}
	sort.Strings(sortedLangs)

	order := []model.Strategy{model.StrategyFileCut, model.StrategySingleCloud, model.StrategyBatchCloud}

	for _, lang := range sortedLangs {
		for _, strat := range order {
			segs := plan[planner.PlanKey{LanguageTag: lang, Strategy: strat}]
			if len(segs) == 0 {
				continue
			}
			var err error
			switch strat {
			case model.StrategyFileCut:
				err = p.runFileCut(segs)
			case model.StrategySingleCloud:
				err = p.runSingleCloud(ctx, lang, segs)
			case model.StrategyBatchCloud:
				err = p.runBatchCloud(ctx, lang, segs)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// runFileCut realizes every FileCut segment by reading the referenced
// recording whole and storing it under its file key (spec.md §4.5 "FileCut
// realization").
func (p *Populator) runFileCut(segs []*model.Segment) error {
	seen := make(map[string]bool)
	for _, seg := range segs {
		v := seg.VariantFor(model.StrategyFileCut)
		if v == nil {
			continue
		}
		if seen[v.FileKey] {
			v.ArtifactKey = v.FileKey
			continue
		}

		path, err := p.opts.ResolveFile(v.FileKey)
		if err != nil {
			return errs.ForFile(errs.InputError, v.FileKey, err)
		}
		header, err := pcm.ReadHeader(path)
		if err != nil {
			return err
		}
		if err := p.deps.Master.CheckOrSet(header); err != nil {
			return err
		}
		frames, err := pcm.ReadFrames(path)
		if err != nil {
			return err
		}
		p.deps.Artifacts.Put(v.FileKey, model.Artifact{Header: header, PCM: frames})
		v.ArtifactKey = v.FileKey
		seen[v.FileKey] = true
	}
	return nil
}

// runSingleCloud realizes every SingleCloud segment independently: cache
// lookup, or synthesize-decode-store on miss (spec.md §4.5 "SingleCloud
// realization").
func (p *Populator) runSingleCloud(ctx context.Context, langTag string, segs []*model.Segment) error {
	for _, seg := range segs {
		v := seg.VariantFor(model.StrategySingleCloud)
		if v == nil {
			continue
		}
		voice := p.opts.VoicePolicy(langTag, model.StrategySingleCloud.String())
		key := ttscache.Key{Text: seg.Text, LanguageCode: seg.Language.Code, VoiceName: voice, Rate: v.RatePercent}

		header, frames, _, err := p.resolveOrSynthesize(ctx, key, seg.Language.Code, voice, v.RatePercent, wrapSSML(seg.Text, v.RatePercent))
		if err != nil {
			return errs.ForSegment(errs.SynthError, seg.Text, err)
		}
		if err := p.deps.Master.CheckOrSet(header); err != nil {
			return err
		}
		p.deps.Artifacts.Put(key.String(), model.Artifact{Header: header, PCM: frames})
		v.ArtifactKey = key.String()
	}
	return nil
}

// resolveOrSynthesize consults the on-disk TTS cache for key, synthesizing
// and storing on a miss. ssml is the already-wrapped document to submit.
// Returns the header, frames, and the final on-disk path of the cached
// artifact (the cache-hit path, or the freshly stored one).
func (p *Populator) resolveOrSynthesize(ctx context.Context, key ttscache.Key, languageCode, voice, rate, ssml string) (model.WAVHeader, []byte, string, error) {
	if path, ok := p.deps.TTSCache.Lookup(key); ok {
		header, err := pcm.ReadHeader(path)
		if err != nil {
			return model.WAVHeader{}, nil, "", err
		}
		frames, err := pcm.ReadFrames(path)
		if err != nil {
			return model.WAVHeader{}, nil, "", err
		}
		return header, frames, path, nil
	}

	master, haveMaster := p.deps.Master.Get()
	sampleRate := model.DefaultMasterHeader.SampleRate
	if haveMaster {
		sampleRate = master.SampleRate
	}

	encoding := p.opts.synthEncoding()
	audio, err := p.deps.Synthesizer.Synthesize(ctx, ssml, languageCode, voice, encoding, int(sampleRate))
	if err != nil {
		return model.WAVHeader{}, nil, "", err
	}

	compressedPath := p.tempPath("synth", strings.ToLower(encoding))
	if err := os.WriteFile(compressedPath, audio, 0o644); err != nil {
		return model.WAVHeader{}, nil, "", err
	}
	defer os.Remove(compressedPath)

	wavPath := p.tempPath("synth", "wav")
	defer os.Remove(wavPath)
	if err := pcm.DecodeCompressed(ctx, p.deps.Decoder, compressedPath, wavPath); err != nil {
		return model.WAVHeader{}, nil, "", err
	}

	header, err := pcm.ReadHeader(wavPath)
	if err != nil {
		return model.WAVHeader{}, nil, "", err
	}
	frames, err := pcm.ReadFrames(wavPath)
	if err != nil {
		return model.WAVHeader{}, nil, "", err
	}

	dest, err := p.deps.TTSCache.Store(ctx, key, wavPath)
	if err != nil {
		return model.WAVHeader{}, nil, "", err
	}
	return header, frames, dest, nil
}

// runBatchCloud groups segs by rate (segments already share a language,
// the grouping this function was invoked for) and dispatches each rate
// bucket to document building and realization (spec.md §4.5 "BatchCloud
// realization").
func (p *Populator) runBatchCloud(ctx context.Context, langTag string, segs []*model.Segment) error {
	byRate := make(map[string][]*model.Segment)
	var rateOrder []string
	var languageCode string

	for _, seg := range segs {
		v := seg.VariantFor(model.StrategyBatchCloud)
		if v == nil {
			continue
		}
		if languageCode == "" {
			languageCode = seg.Language.Code
		}
		if _, ok := byRate[v.RatePercent]; !ok {
			rateOrder = append(rateOrder, v.RatePercent)
		}
		byRate[v.RatePercent] = append(byRate[v.RatePercent], seg)
	}

	for _, rate := range rateOrder {
		if err := p.runBatchForRate(ctx, langTag, languageCode, rate, byRate[rate]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Populator) warnf(format string, args ...interface{}) {
	p.logger.Warnf(format, args...)
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

func (p *Populator) tempPath(prefix, ext string) string {
	p.tmpSeq++
	return filepath.Join(p.deps.TempDir, fmt.Sprintf("%s-%d-%d.%s", prefix, os.Getpid(), p.tmpSeq, ext))
}

// wrapSSML wraps text in <speak>, with an optional <prosody rate="...">
// wrapper when rate isn't the unmarked 100% (spec.md §4.5).
func wrapSSML(text, rate string) string {
	escaped := escapeSSML(text)
	if rate == "" || rate == "100%" {
		return "<speak>" + escaped + "</speak>"
	}
	return fmt.Sprintf(`<speak><prosody rate="%s">%s</prosody></speak>`, rate, escaped)
}

func escapeSSML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}
