// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package populate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/jobstate"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
	"github.com/rapidaai/langtrack/internal/planner"
	"github.com/rapidaai/langtrack/internal/silencecache"
	"github.com/rapidaai/langtrack/internal/ttscache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type fakeLogger struct{}

func (fakeLogger) Level() zapcore.Level            { return zapcore.DebugLevel }
func (fakeLogger) Debug(args ...interface{})       {}
func (fakeLogger) Debugf(string, ...interface{})   {}
func (fakeLogger) Info(args ...interface{})        {}
func (fakeLogger) Infof(string, ...interface{})    {}
func (fakeLogger) Warn(args ...interface{})        {}
func (fakeLogger) Warnf(string, ...interface{})    {}
func (fakeLogger) Error(args ...interface{})       {}
func (fakeLogger) Errorf(string, ...interface{})   {}
func (fakeLogger) DPanic(args ...interface{})      {}
func (fakeLogger) DPanicf(string, ...interface{})  {}
func (fakeLogger) Panic(args ...interface{})       {}
func (fakeLogger) Panicf(string, ...interface{})   {}
func (fakeLogger) Fatal(args ...interface{})       {}
func (fakeLogger) Fatalf(string, ...interface{})   {}
func (fakeLogger) Benchmark(string, time.Duration) {}
func (fakeLogger) Sync() error                     { return nil }

var testHeader = model.WAVHeader{SampleRate: 22050, BitsPerSample: 16, Channels: 1}

// fakeSynthesizer returns a marker payload; the fakeDecoder ignores its
// content and produces a real WAV deterministically sized by call count.
type fakeSynthesizer struct {
	calls int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, ssml, languageCode, voice, encoding string, sampleRate int) ([]byte, error) {
	f.calls++
	return []byte("fake-compressed-audio"), nil
}

// fakeDecoder writes a fixed-size, deterministic PCM WAV regardless of
// input, satisfying pcm.ReadHeader/ReadFrames round-tripping.
type fakeDecoder struct {
	frameCount int
}

func (f *fakeDecoder) ToPCMWAV(ctx context.Context, inPath, outPath string) error {
	n := f.frameCount
	if n == 0 {
		n = 1000
	}
	frames := make([]byte, n*testHeader.BytesPerFrame())
	return pcm.WriteWAV(outPath, frames, testHeader)
}

type fakeDetector struct {
	pauses []capability.PauseInterval
	err    error
}

func (f *fakeDetector) Detect(ctx context.Context, path string, amplitudeThreshold, minSilenceSec float64) ([]capability.PauseInterval, error) {
	return f.pauses, f.err
}

func newPopulator(t *testing.T, synth *fakeSynthesizer, dec *fakeDecoder, det *fakeDetector) *Populator {
	t.Helper()
	dir := t.TempDir()
	deps := Deps{
		Synthesizer:  synth,
		Decoder:      dec,
		Detector:     det,
		TTSCache:     ttscache.New(filepath.Join(dir, "tts")),
		SilenceCache: silencecache.New(filepath.Join(dir, "silence")),
		Artifacts:    jobstate.NewArtifactTable(),
		Master:       &jobstate.MasterHeader{},
		TempDir:      dir,
	}
	opts := Options{
		BatchBreakSec:      2,
		EdgeStepSec:        0.7,
		MaxSSMLLength:      4800,
		AmplitudeThreshold: -40,
		MinSilenceSec:      0.3,
		VoicePolicy:        func(lang, strategy string) string { return "voice-" + lang },
		ResolveFile: func(fileKey string) (string, error) {
			return fileKey, nil
		},
	}
	return New(fakeLogger{}, opts, deps)
}

func segmentWithBatchVariant(text, rate string) *model.Segment {
	seg := &model.Segment{Text: text, Language: model.LanguageGerman}
	seg.AddVariant(&model.SegmentVariant{Strategy: model.StrategyBatchCloud, RatePercent: rate})
	return seg
}

func TestRunFileCutStoresWholeRecordingAndSetsMasterHeader(t *testing.T) {
	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{}, &fakeDetector{})

	dir := t.TempDir()
	recPath := filepath.Join(dir, "rec1.wav")
	require.NoError(t, pcm.WriteWAV(recPath, make([]byte, 2000), testHeader))

	seg := &model.Segment{Text: "Hallo.", Language: model.LanguageGerman}
	seg.AddVariant(&model.SegmentVariant{Strategy: model.StrategyFileCut, FileKey: recPath, StartTimeSec: 0, EndTimeSec: 1})

	err := p.runFileCut([]*model.Segment{seg})
	require.NoError(t, err)

	v := seg.VariantFor(model.StrategyFileCut)
	assert.Equal(t, recPath, v.ArtifactKey)

	a, ok := p.deps.Artifacts.Get(recPath)
	require.True(t, ok)
	assert.Equal(t, 2000, len(a.PCM))

	master, haveMaster := p.deps.Master.Get()
	require.True(t, haveMaster)
	assert.Equal(t, testHeader, master)
}

func TestRunFileCutMissingSourceIsFatal(t *testing.T) {
	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{}, &fakeDetector{})
	p.opts.ResolveFile = func(fileKey string) (string, error) {
		return "", assertErr
	}
	seg := &model.Segment{Text: "Hallo.", Language: model.LanguageGerman}
	seg.AddVariant(&model.SegmentVariant{Strategy: model.StrategyFileCut, FileKey: "missing", StartTimeSec: 0, EndTimeSec: 1})

	err := p.runFileCut([]*model.Segment{seg})
	require.Error(t, err)
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestRunSingleCloudMissThenHit(t *testing.T) {
	synth := &fakeSynthesizer{}
	p := newPopulator(t, synth, &fakeDecoder{frameCount: 500}, &fakeDetector{})

	seg := &model.Segment{Text: "Hallo.", Language: model.LanguageGerman}
	seg.AddVariant(&model.SegmentVariant{Strategy: model.StrategySingleCloud, RatePercent: "100%"})

	require.NoError(t, p.runSingleCloud(context.Background(), "de", []*model.Segment{seg}))
	assert.Equal(t, 1, synth.calls)
	v := seg.VariantFor(model.StrategySingleCloud)
	require.NotEmpty(t, v.ArtifactKey)
	a, ok := p.deps.Artifacts.Get(v.ArtifactKey)
	require.True(t, ok)
	assert.Equal(t, 500*testHeader.BytesPerFrame(), len(a.PCM))

	// A second segment with identical text/lang/voice/rate hits the cache
	// and must not call the synthesizer again.
	seg2 := &model.Segment{Text: "Hallo.", Language: model.LanguageGerman}
	seg2.AddVariant(&model.SegmentVariant{Strategy: model.StrategySingleCloud, RatePercent: "100%"})
	require.NoError(t, p.runSingleCloud(context.Background(), "de", []*model.Segment{seg2}))
	assert.Equal(t, 1, synth.calls)
}

func TestRunBatchCloudAssignsWindowsWhenPauseCountMatches(t *testing.T) {
	det := &fakeDetector{pauses: []capability.PauseInterval{
		{StartSec: 0.9, EndSec: 1.1},
		{StartSec: 2.9, EndSec: 3.1},
		{StartSec: 4.9, EndSec: 5.1},
	}}
	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{frameCount: 5000}, det)

	segs := []*model.Segment{
		segmentWithBatchVariant("Eins.", "100%"),
		segmentWithBatchVariant("Zwei.", "100%"),
		segmentWithBatchVariant("Drei.", "100%"),
	}

	require.NoError(t, p.runBatchCloud(context.Background(), "de", segs))

	v0 := segs[0].VariantFor(model.StrategyBatchCloud)
	v1 := segs[1].VariantFor(model.StrategyBatchCloud)
	v2 := segs[2].VariantFor(model.StrategyBatchCloud)

	assert.True(t, v0.HasValidWindow())
	assert.True(t, v1.HasValidWindow())
	assert.True(t, v2.HasValidWindow())
	assert.Less(t, v0.EndTimeSec, v1.StartTimeSec)
	assert.Less(t, v1.EndTimeSec, v2.StartTimeSec)
	assert.NotEmpty(t, v0.ArtifactKey)
	assert.Equal(t, v0.ArtifactKey, v1.ArtifactKey)
}

func TestRunBatchCloudMarksTailInvalidOnPauseMismatch(t *testing.T) {
	det := &fakeDetector{pauses: []capability.PauseInterval{
		{StartSec: 0.9, EndSec: 1.1},
		{StartSec: 2.9, EndSec: 3.1},
	}}
	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{frameCount: 5000}, det)

	segs := []*model.Segment{
		segmentWithBatchVariant("Eins.", "100%"),
		segmentWithBatchVariant("Zwei.", "100%"),
		segmentWithBatchVariant("Drei.", "100%"),
	}

	require.NoError(t, p.runBatchCloud(context.Background(), "de", segs))

	v2 := segs[2].VariantFor(model.StrategyBatchCloud)
	assert.Equal(t, -1.0, v2.StartTimeSec)
	assert.Equal(t, -1.0, v2.EndTimeSec)
	assert.False(t, v2.HasValidWindow())
	assert.NotEmpty(t, p.Warnings)
}

func TestRunBatchCloudToleratesDetectorFailure(t *testing.T) {
	det := &fakeDetector{err: assertErr}
	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{frameCount: 5000}, det)

	segs := []*model.Segment{segmentWithBatchVariant("Eins.", "100%")}
	err := p.runBatchCloud(context.Background(), "de", segs)
	require.NoError(t, err)

	v := segs[0].VariantFor(model.StrategyBatchCloud)
	assert.Equal(t, -1.0, v.StartTimeSec)
	assert.NotEmpty(t, p.Warnings)
}

func TestBuildBatchDocumentsSplitsOnMaxLength(t *testing.T) {
	segs := []*model.Segment{
		segmentWithBatchVariant("one", "100%"),
		segmentWithBatchVariant("two", "100%"),
		segmentWithBatchVariant("three", "100%"),
	}
	docs := buildBatchDocuments(segs, "100%", 2, 30)
	require.Greater(t, len(docs), 1)
	total := 0
	for _, d := range docs {
		total += len(d.segments)
	}
	assert.Equal(t, 3, total)
}

func TestWrapSSMLAddsProsodyOnlyForNonDefaultRate(t *testing.T) {
	assert.Equal(t, "<speak>Hallo.</speak>", wrapSSML("Hallo.", "100%"))
	assert.Contains(t, wrapSSML("Hallo.", "120%"), `<prosody rate="120%">`)
}

func TestPlanIntegrationRoundTrip(t *testing.T) {
	pl := planner.New(fakeLogger{}, planner.Options{DefaultLanguage: model.LanguageGerman, AllowTranslation: true})
	cards, plan := pl.BuildCards([]model.Phrase{
		{Kind: model.PhrasePair, Original: "Hallo.", Translation: "Hello.", HasTranslation: true},
	})
	require.Len(t, cards, 1)

	p := newPopulator(t, &fakeSynthesizer{}, &fakeDecoder{frameCount: 400}, &fakeDetector{})
	require.NoError(t, p.Run(context.Background(), plan))
}
