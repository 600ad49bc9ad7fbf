// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ttscache implements C2 (spec.md §4.2): a content-addressed
// on-disk store for synthesized PCM artifacts, keyed by
// (text, language, voice, rate). Grounded on the teacher's cache-key /
// rate-tag handling referenced from the original Python source's
// repetitor/audio/tts_cache.py (rate-string canonicalization, see
// SPEC_FULL.md §12) and on the teacher's atomic-rename store discipline
// used throughout its on-disk caches.
package ttscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rapidaai/langtrack/internal/distlock"
	"github.com/rapidaai/langtrack/internal/errs"
)

// Key fields identifying one cached synthesis artifact (spec.md §4.2).
type Key struct {
	Text         string
	LanguageCode string
	VoiceName    string
	Rate         string
}

// rateTag canonicalizes a rate string into a filesystem-safe tag. The
// original source's tts_cache.py accepts "+10%", "-5%", bare percentages,
// and "default"; all forms collapse to the same tag shape here
// (SPEC_FULL.md §12).
func rateTag(rate string) string {
	r := strings.TrimSpace(rate)
	r = strings.TrimPrefix(r, "+")
	r = strings.ReplaceAll(r, "%", "pct")
	if r == "" {
		r = "default"
	}
	return r
}

// String renders the cache key string: {lang}_{voice}_{rate}_{hex_sha256}.
func (k Key) String() string {
	sum := sha256.Sum256([]byte(k.Text))
	return fmt.Sprintf("%s_%s_%s_%s", k.LanguageCode, k.VoiceName, rateTag(k.Rate), hex.EncodeToString(sum[:]))
}

// hexDigest is the bare sha256 hex of the text, used for the on-disk
// filename component.
func (k Key) hexDigest() string {
	sum := sha256.Sum256([]byte(k.Text))
	return hex.EncodeToString(sum[:])
}

// CompositeKey builds the composite cache key used for BatchCloud
// artifacts: (fingerprint, language, voice, rate) (spec.md §4.5 step 2).
func CompositeKey(fingerprint, languageCode, voiceName, rate string) Key {
	return Key{Text: fingerprint, LanguageCode: languageCode, VoiceName: voiceName, Rate: rate}
}

// Cache is the on-disk, content-addressed artifact store at
// <root>/{lang}/{voice}/{rate_tag}/{hex}.wav.
type Cache struct {
	root   string
	mu     sync.Mutex // serializes concurrent store() calls within this process
	locker distlock.Locker
}

func New(root string) *Cache {
	return &Cache{root: root, locker: distlock.Noop{}}
}

// NewWithLocker is New, additionally serializing store() calls across
// processes via locker (spec.md §5, SPEC_FULL.md §11 "a distributed
// advisory lock used by internal/ttscache and internal/silencecache").
func NewWithLocker(root string, locker distlock.Locker) *Cache {
	if locker == nil {
		locker = distlock.Noop{}
	}
	return &Cache{root: root, locker: locker}
}

// PathFor returns the on-disk path a key would occupy, without checking
// existence.
func (c *Cache) PathFor(k Key) string {
	return filepath.Join(c.root, k.LanguageCode, k.VoiceName, rateTag(k.Rate), k.hexDigest()+".wav")
}

// Lookup returns the path to a cached artifact if present.
func (c *Cache) Lookup(k Key) (string, bool) {
	p := c.PathFor(k)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Store copies sourcePath into the cache at k's path, replacing atomically
// via rename-into-place. If two workers race to store the same key, the
// final file content is one of the (identical-by-construction) inputs
// (spec.md §4.2 concurrency contract). Serialized in-process by a mutex
// and, when a distributed Locker is configured, across processes too.
func (c *Cache) Store(ctx context.Context, k Key, sourcePath string) (string, error) {
	unlock, err := c.locker.Lock(ctx, k.String())
	if err != nil {
		return "", errs.New(errs.ConfigError, "ttscache lock "+k.String(), err)
	}
	defer unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	dest := c.PathFor(k)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errs.ForFile(errs.ConfigError, filepath.Dir(dest), err)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", errs.ForFile(errs.SynthError, sourcePath, err)
	}

	tmp := dest + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errs.ForFile(errs.SynthError, tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", errs.ForFile(errs.SynthError, dest, err)
	}
	return dest, nil
}
