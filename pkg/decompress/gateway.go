/*
Copyright 2021 Loggie Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package decompress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/cfg"
	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/util/tempfile"
)

type Config struct {
	// ExternalTimeout bounds an external decoder run, the child is killed when it expires.
	// Zero means no bound.
	ExternalTimeout time.Duration `yaml:"externalTimeout" default:"10m"`
	CabTool         string        `yaml:"cabTool,omitempty"`
}

func (c *Config) Validate() error {
	if c.ExternalTimeout < 0 {
		return errors.Errorf("externalTimeout must not be negative: %s", c.ExternalTimeout)
	}
	return nil
}

func DefaultConfig() *Config {
	c := &Config{}
	if err := cfg.SetDefaults(c); err != nil {
		log.Panic("set decompress config defaults: %v", err)
	}
	return c
}

// Gateway replaces compressed artifacts with their decompressed content.
// It holds no per-artifact state and is safe for concurrent use.
type Gateway struct {
	config *Config
}

func NewGateway(config *Config) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	return &Gateway{
		config: config,
	}
}

var defaultGateway = NewGateway(nil)

// MaybeDecompress decompresses src with the default gateway.
func MaybeDecompress(ctx context.Context, src *tempfile.File) error {
	return defaultGateway.MaybeDecompress(ctx, src)
}

// MaybeDecompress sniffs src and, when it is compressed, swaps it for a
// decompressed file created in the same directory.
func (g *Gateway) MaybeDecompress(ctx context.Context, src *tempfile.File) error {
	kind, err := Sniff(src)
	if err != nil {
		return err
	}
	return g.Decompress(ctx, src, kind)
}

// Decompress decodes src as kind. On success src refers to the decoded content and the
// compressed file has been removed. On failure src is left as it was.
func (g *Gateway) Decompress(ctx context.Context, src *tempfile.File, kind Kind) error {
	if kind == None {
		log.Info("file is not compressed, skipping decompression: %s", src.Path())
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &Error{Kind: kind, Path: src.Path(), Err: err}
	}

	dst, err := tempfile.NewInParent(src)
	if err != nil {
		return err
	}
	// after the swap this releases the compressed file, otherwise the partial output
	defer dst.Close()

	switch kind {
	case Cab:
		err = g.decompressCab(ctx, src, dst)
	default:
		err = g.decompressInProcess(src, dst, kind)
	}
	if err != nil {
		return err
	}

	if err := dst.Sync(); err != nil {
		return err
	}
	if err := dst.Rewind(); err != nil {
		return err
	}
	tempfile.Swap(src, dst)
	return nil
}

func (g *Gateway) decompressInProcess(src *tempfile.File, dst *tempfile.File, kind Kind) error {
	decoder := GetOrCreateDecoderFactory().Get(kind)
	if decoder == nil {
		return errors.Errorf("no decoder registered for %s", kind)
	}

	size, err := src.Size()
	if err != nil {
		return err
	}
	if err := src.Rewind(); err != nil {
		return err
	}
	if err := decoder(dst.File(), src.File(), size); err != nil {
		// leave the source readable from the start for the caller
		_ = src.Rewind()
		return &Error{Kind: kind, Path: src.Path(), Err: err}
	}
	return nil
}
