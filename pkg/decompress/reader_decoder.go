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
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

func init() {
	GetOrCreateDecoderFactory().Register(Zstd, decodeZstd)
	GetOrCreateDecoderFactory().Register(Gzip, decodeGzip)
	GetOrCreateDecoderFactory().Register(Zlib, decodeZlib)
}

func decodeZstd(dst io.Writer, src *os.File, _ int64) error {
	reader, err := zstd.NewReader(src)
	if err != nil {
		return errors.WithMessage(err, "create zstd reader")
	}
	defer reader.Close()

	_, err = io.Copy(dst, reader)
	return err
}

func decodeGzip(dst io.Writer, src *os.File, _ int64) error {
	reader, err := gzip.NewReader(src)
	if err != nil {
		return errors.WithMessage(err, "create gzip reader")
	}
	defer reader.Close()

	_, err = io.Copy(dst, reader)
	return err
}

func decodeZlib(dst io.Writer, src *os.File, _ int64) error {
	reader, err := zlib.NewReader(src)
	if err != nil {
		return errors.WithMessage(err, "create zlib reader")
	}
	defer reader.Close()

	_, err = io.Copy(dst, reader)
	return err
}
