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

package processor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/decompress"
	"github.com/loggie-io/artifactgate/pkg/util/file"
	"github.com/loggie-io/artifactgate/pkg/util/tempfile"
)

// extensions a decompressed output name loses, by the detected kind
var kindExtensions = map[decompress.Kind][]string{
	decompress.Zstd: {".zst", ".zstd"},
	decompress.Gzip: {".gz", ".gzip"},
	decompress.Zlib: {".zz", ".zlib"},
	decompress.Zip:  {".zip"},
	decompress.Cab:  {".cab"},
}

type Result struct {
	Source      string
	Output      string
	Kind        decompress.Kind
	InputSize   int64
	OutputSize  int64
	Fingerprint uint64 // xxhash of the output content
	Cost        time.Duration
	Err         error
}

// Processor stages artifacts next to their destination, runs them through the
// gateway and persists whatever the gateway leaves behind.
type Processor struct {
	gateway   *decompress.Gateway
	outputDir string
	workers   *ants.Pool
}

func New(gateway *decompress.Gateway, outputDir string, workerSize int) (*Processor, error) {
	if err := file.CreateDirIfNotExist(outputDir); err != nil {
		return nil, err
	}
	outputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(
		workerSize,
		ants.WithExpiryDuration(60*time.Second),
		ants.WithPanicHandler(func(p interface{}) {
			log.Error("artifact worker panic: %v", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Processor{
		gateway:   gateway,
		outputDir: outputDir,
		workers:   pool,
	}, nil
}

func (p *Processor) Release() {
	p.workers.Release()
}

// OutputName drops the extension that announced the detected compression.
func OutputName(name string, kind decompress.Kind) string {
	ext := filepath.Ext(name)
	for _, e := range kindExtensions[kind] {
		if strings.EqualFold(ext, e) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// Process handles one artifact synchronously on the calling goroutine.
func (p *Processor) Process(ctx context.Context, path string) *Result {
	start := time.Now()
	result := &Result{Source: path}
	result.Err = p.process(ctx, path, result)
	result.Cost = time.Since(start)

	if result.Err != nil {
		log.Warn("process artifact %s failed: %v", path, result.Err)
	} else {
		log.Info("processed artifact %s(%s, %d bytes) to %s(%d bytes, xxhash %016x) in %s",
			path, result.Kind, result.InputSize, result.Output, result.OutputSize, result.Fingerprint, result.Cost)
	}
	return result
}

// Submit queues path on the worker pool. done is called with the result from the worker.
func (p *Processor) Submit(ctx context.Context, path string, done func(*Result)) error {
	return p.workers.Submit(func() {
		result := p.Process(ctx, path)
		if done != nil {
			done(result)
		}
	})
}

// ProcessAll runs every path on the worker pool and returns the results in input order.
func (p *Processor) ProcessAll(ctx context.Context, paths []string) []*Result {
	results := make([]*Result, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		i, path := i, path
		wg.Add(1)
		err := p.Submit(ctx, path, func(r *Result) {
			results[i] = r
			wg.Done()
		})
		if err != nil {
			results[i] = &Result{Source: path, Err: errors.WithMessage(err, "submit to worker pool")}
			wg.Done()
		}
	}
	wg.Wait()
	return results
}

func (p *Processor) process(ctx context.Context, path string, result *Result) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	artifact, err := tempfile.New(p.outputDir, "")
	if err != nil {
		return err
	}
	defer artifact.Close()

	if result.InputSize, err = io.Copy(artifact.File(), in); err != nil {
		return errors.WithMessagef(err, "stage %s", path)
	}

	if result.Kind, err = decompress.Sniff(artifact); err != nil {
		return err
	}
	if err := p.gateway.Decompress(ctx, artifact, result.Kind); err != nil {
		return err
	}

	hash := xxhash.New()
	if err := artifact.Rewind(); err != nil {
		return err
	}
	if result.OutputSize, err = io.Copy(hash, artifact.File()); err != nil {
		return errors.WithMessagef(err, "read back %s", artifact.Path())
	}
	result.Fingerprint = hash.Sum64()

	output := filepath.Join(p.outputDir, OutputName(filepath.Base(path), result.Kind))
	if source, err := filepath.Abs(path); err == nil && source == output {
		return errors.Errorf("output %s would overwrite its source", output)
	}
	if err := artifact.Persist(output); err != nil {
		return err
	}
	result.Output = output
	return nil
}
