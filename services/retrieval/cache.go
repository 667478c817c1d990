// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v4"
)

// EmbeddingCache persists computed embeddings in a local Badger store so
// restarts and data reloads skip re-embedding unchanged descriptions.
//
// Keys are sha256(provider name + text), so switching backends never
// serves vectors from the wrong model. A nil *EmbeddingCache is valid
// and disables caching; every method is nil-safe.
type EmbeddingCache struct {
	db *badger.DB
}

// OpenEmbeddingCache opens (or creates) the cache at dir. Badger's own
// logger is silenced; cache problems surface through the returned error
// or as misses, never as log spam.
func OpenEmbeddingCache(dir string) (*EmbeddingCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open the embedding cache at %s: %w", dir, err)
	}
	return &EmbeddingCache{db: db}, nil
}

// Close releases the underlying store.
func (c *EmbeddingCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func cacheKey(provider, text string) []byte {
	sum := sha256.Sum256([]byte(provider + "\x00" + text))
	return sum[:]
}

// Get returns the cached vector for (provider, text), or nil on a miss.
func (c *EmbeddingCache) Get(provider, text string) []float32 {
	if c == nil || c.db == nil {
		return nil
	}
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(provider, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		return nil
	}
	return vec
}

// Put stores a vector for (provider, text). Errors are returned so the
// caller can log them, but a failed Put only costs a future recompute.
func (c *EmbeddingCache) Put(provider, text string, vec []float32) error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(provider, text), encodeVector(vec))
	})
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec
}

// CachedProvider wraps an EmbeddingProvider with the cache, embedding
// only the texts the cache does not already hold.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *EmbeddingCache
}

// NewCachedProvider wraps inner; a nil cache passes everything through.
func NewCachedProvider(inner EmbeddingProvider, cache *EmbeddingCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// Name implements EmbeddingProvider.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Embed implements EmbeddingProvider.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec := p.cache.Get(p.inner.Name(), text); vec != nil {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	computed, err := p.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range computed {
		out[missingIdx[j]] = vec
		_ = p.cache.Put(p.inner.Name(), missing[j], vec)
	}
	return out, nil
}
