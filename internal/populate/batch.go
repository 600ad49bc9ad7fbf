// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package populate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/silencecache"
	"github.com/rapidaai/langtrack/internal/ttscache"
)

// batchDocument is one SSML document built from consecutive segments
// sharing a language and rate (spec.md §4.5 "BatchCloud realization").
type batchDocument struct {
	segments []*model.Segment
	variants []*model.SegmentVariant
	body     string
	ssml     string
}

// buildBatchDocuments packs segs into one or more SSML documents, closing
// the current document and opening a new one whenever the next segment
// would push it past maxSSMLLen (spec.md §4.5). Segment order within a
// document is preserved.
func buildBatchDocuments(segs []*model.Segment, rate string, batchBreakSec, maxSSMLLen int) []*batchDocument {
	open, close := ssmlEnvelope(rate)
	overhead := len(open) + len(close)

	var docs []*batchDocument
	var cur *batchDocument

	for _, seg := range segs {
		v := seg.VariantFor(model.StrategyBatchCloud)
		if v == nil {
			continue
		}
		piece := escapeSSML(seg.Text) + fmt.Sprintf(`<break time="%ds"/>`, batchBreakSec)

		if cur != nil && overhead+len(cur.body)+len(piece) > maxSSMLLen {
			cur.ssml = open + cur.body + close
			docs = append(docs, cur)
			cur = nil
		}
		if cur == nil {
			cur = &batchDocument{}
		}
		cur.segments = append(cur.segments, seg)
		cur.variants = append(cur.variants, v)
		cur.body += piece
	}
	if cur != nil {
		cur.ssml = open + cur.body + close
		docs = append(docs, cur)
	}
	return docs
}

// ssmlEnvelope returns the opening and closing tags wrapping a batch
// document, adding <prosody rate="..."> only when rate is not the
// unmarked 100% (spec.md §4.5).
func ssmlEnvelope(rate string) (open, close string) {
	if rate == "" || rate == "100%" {
		return "<speak>", "</speak>"
	}
	return fmt.Sprintf(`<speak><prosody rate="%s">`, rate), "</prosody></speak>"
}

// runBatchForRate builds and realizes every SSML document for one
// (language, rate) bucket of BatchCloud segments.
func (p *Populator) runBatchForRate(ctx context.Context, langTag, languageCode, rate string, segs []*model.Segment) error {
	docs := buildBatchDocuments(segs, rate, p.opts.BatchBreakSec, p.opts.MaxSSMLLength)
	voice := p.opts.VoicePolicy(langTag, model.StrategyBatchCloud.String())

	for _, doc := range docs {
		if err := p.realizeBatchDocument(ctx, doc, languageCode, voice, rate); err != nil {
			return err
		}
	}
	return nil
}

// realizeBatchDocument synthesizes (or loads from cache) one batch
// document, detects its pause map, and assigns each segment's window
// (spec.md §4.5 steps 1-6).
func (p *Populator) realizeBatchDocument(ctx context.Context, doc *batchDocument, languageCode, voice, rate string) error {
	fingerprint := silencecache.Fingerprint(doc.ssml)
	key := ttscache.CompositeKey(fingerprint, languageCode, voice, rate)

	header, frames, path, err := p.resolveOrSynthesize(ctx, key, languageCode, voice, rate, doc.ssml)
	if err != nil {
		return errs.ForBatch(errs.SynthError, fingerprint, err)
	}
	if err := p.deps.Master.CheckOrSet(header); err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if _, ok := p.deps.Artifacts.Get(absPath); !ok {
		p.deps.Artifacts.Put(absPath, model.Artifact{Header: header, PCM: frames})
	}

	pauses, ok := p.deps.SilenceCache.Lookup(fingerprint)
	if !ok {
		detected, derr := p.deps.Detector.Detect(ctx, path, p.opts.AmplitudeThreshold, p.opts.MinSilenceSec)
		if derr != nil {
			// DetectError is recoverable: proceed with an empty pause list
			// (spec.md §7), marking every segment's tail fallback.
			p.warnf("silence detection failed for batch %s: %v", fingerprint, derr)
			pauses = nil
		} else {
			pauses = detected
			if serr := p.deps.SilenceCache.Store(ctx, fingerprint, pauses); serr != nil {
				p.warnf("failed to persist silence map for batch %s: %v", fingerprint, serr)
			}
		}
	}

	if len(pauses) < len(doc.variants) {
		p.warnf("batch %s: %d pauses detected for %d segments; tail segments fall back to the full batch artifact", fingerprint, len(pauses), len(doc.variants))
	}

	assignBatchWindows(doc.variants, pauses, p.opts.EdgeStepSec, absPath)
	return nil
}

// assignBatchWindows implements spec.md §4.5 step 5-6: segment i's window
// is [cursor, middle(pause_i)], inset by edgeStep and falling back first to
// the raw pause interval, then to a 10ms window, when insetting inverts
// the window. Segments beyond the pause list get an invalid (-1, -1)
// window and still carry the batch artifact key.
func assignBatchWindows(variants []*model.SegmentVariant, pauses []capability.PauseInterval, edgeStep float64, artifactKey string) {
	cursor := 0.0
	for i, v := range variants {
		v.ArtifactKey = artifactKey
		if i >= len(pauses) {
			v.StartTimeSec = -1
			v.EndTimeSec = -1
			continue
		}
		p := pauses[i]
		mid := p.StartSec + (p.EndSec-p.StartSec)/2

		start := cursor
		if i > 0 {
			start += edgeStep
		}
		end := mid - edgeStep

		if start >= end {
			start, end = p.StartSec, p.EndSec
			if start >= end {
				end = start + 0.01
			}
		}
		v.StartTimeSec = start
		v.EndTimeSec = end
		cursor = mid
	}
}
