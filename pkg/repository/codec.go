package repository

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/webflow/pkg/domain"
)

func init() {
	Register(map[string]any{})
	Register([]any{})
	Register(domain.Attributes{})
	Register(map[string]string{})
	Register(time.Time{})
}

// Register records a concrete type stored in flow scopes so snapshots holding
// it can be decoded. Call it at init time for every application model type.
func Register(v any) {
	gob.Register(v)
}

var gzipMagic = []byte{0x1f, 0x8b}

// Codec serializes snapshots with encoding/gob, optionally gzip compressed.
// Decoding detects compression by itself, so the setting can change between deployments.
type Codec struct {
	Compress bool
}

// Encode serializes v.
func (c Codec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	var zw *gzip.Writer
	if c.Compress {
		zw = gzip.NewWriter(&buf)
		w = zw
	}
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress snapshot: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into v.
func (c Codec) Decode(data []byte, v any) error {
	var r io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return nil
}
