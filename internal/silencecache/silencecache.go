// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package silencecache implements C3 (spec.md §4.3): a content-addressed
// on-disk store mapping a batch fingerprint to its detected pause
// intervals, stored as small JSON files. A corrupted file is treated as a
// miss and removed (spec.md §7 IntegrityError).
package silencecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/distlock"
	"github.com/rapidaai/langtrack/internal/errs"
)

// Fingerprint is sha256(full_ssml) truncated to 16 hex chars.
func Fingerprint(ssml string) string {
	sum := sha256.Sum256([]byte(ssml))
	return hex.EncodeToString(sum[:])[:16]
}

type pauseFile struct {
	Pauses []capability.PauseInterval `json:"pauses"`
}

// Cache is the on-disk silence-map store at <root>/{fingerprint}.json.
type Cache struct {
	root   string
	mu     sync.Mutex // serializes concurrent Store() calls within this process
	locker distlock.Locker
}

func New(root string) *Cache {
	return &Cache{root: root, locker: distlock.Noop{}}
}

// NewWithLocker is New, additionally serializing store() calls across
// processes via locker (spec.md §5, SPEC_FULL.md §11).
func NewWithLocker(root string, locker distlock.Locker) *Cache {
	if locker == nil {
		locker = distlock.Noop{}
	}
	return &Cache{root: root, locker: locker}
}

func (c *Cache) path(fingerprint string) string {
	return filepath.Join(c.root, fingerprint+".json")
}

// Lookup returns the stored pause list for a fingerprint. A corrupted file
// is treated as a miss and deleted, per spec.md §4.3/§7.
func (c *Cache) Lookup(fingerprint string) ([]capability.PauseInterval, bool) {
	p := c.path(fingerprint)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	var pf pauseFile
	if err := json.Unmarshal(data, &pf); err != nil {
		os.Remove(p)
		return nil, false
	}
	return pf.Pauses, true
}

// Store writes the pause list for a fingerprint, atomically. Serialized
// in-process by a mutex and, when a distributed Locker is configured,
// across processes too.
func (c *Cache) Store(ctx context.Context, fingerprint string, pauses []capability.PauseInterval) error {
	unlock, err := c.locker.Lock(ctx, fingerprint)
	if err != nil {
		return errs.New(errs.ConfigError, "silencecache lock "+fingerprint, err)
	}
	defer unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return errs.ForFile(errs.ConfigError, c.root, err)
	}
	data, err := json.Marshal(pauseFile{Pauses: pauses})
	if err != nil {
		return errs.ForBatch(errs.IntegrityError, fingerprint, err)
	}
	dest := c.path(fingerprint)
	tmp := dest + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.ForFile(errs.IntegrityError, tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return errs.ForFile(errs.IntegrityError, dest, err)
	}
	return nil
}
