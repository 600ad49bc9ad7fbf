// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package jobstate holds the mutable state the Job Orchestrator owns for
// the duration of one job and hands to components by reference: the
// artifact table, the master header, and the pause table (spec.md §3
// "Ownership"). Every access is serialized by a mutex per spec.md §5
// ("the artifact table and master-header check are the only shared
// mutable structures; they MUST be serialized by a mutual-exclusion
// discipline").
package jobstate

import (
	"sync"

	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
)

// MasterHeader is the single WAV header that governs a job, set by
// whichever artifact is realized first (spec.md invariant I1).
type MasterHeader struct {
	mu     sync.Mutex
	header model.WAVHeader
	set    bool
}

// CheckOrSet sets the master header on first call, or validates that h
// matches it on every subsequent call (spec.md invariant I1).
func (m *MasterHeader) CheckOrSet(h model.WAVHeader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		m.header = h
		m.set = true
		return nil
	}
	if !m.header.Equal(h) {
		return errs.New(errs.InvariantError, "artifact header disagrees with master header", nil)
	}
	return nil
}

// Get returns the current master header and whether one has been set.
func (m *MasterHeader) Get() (model.WAVHeader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header, m.set
}

// ArtifactTable maps an opaque artifact key to its realized Artifact
// (spec.md §3 "Artifact Table"). Populated by C5, consulted read-only by
// C6.
type ArtifactTable struct {
	mu        sync.RWMutex
	artifacts map[string]model.Artifact
}

func NewArtifactTable() *ArtifactTable {
	return &ArtifactTable{artifacts: make(map[string]model.Artifact)}
}

func (t *ArtifactTable) Put(key string, a model.Artifact) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.artifacts[key] = a
}

func (t *ArtifactTable) Get(key string) (model.Artifact, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.artifacts[key]
	return a, ok
}

// PauseTable lazily builds and caches silence PCM by duration-ms (spec.md
// §3 "Pause Table"), shared across the job so the Concatenator never
// regenerates the same silence twice.
type PauseTable struct {
	mu    sync.Mutex
	table map[int64][]byte
}

func NewPauseTable() *PauseTable {
	return &PauseTable{table: make(map[int64][]byte)}
}

// Silence returns (generating and caching, if needed) durationMs of
// silence PCM for header.
func (p *PauseTable) Silence(durationMs int64, header model.WAVHeader) []byte {
	if durationMs <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.table[durationMs]; ok {
		return b
	}
	b := pcm.MakeSilence(float64(durationMs)/1000.0, header)
	p.table[durationMs] = b
	return b
}
