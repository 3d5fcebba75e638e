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

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/log"
)

func init() {
	GetOrCreateDecoderFactory().Register(Zip, decodeZip)
}

// decodeZip extracts the first file entry of the archive, directories are skipped.
// Picking a specific entry out of a multi-file archive is left to the caller.
func decodeZip(dst io.Writer, src *os.File, size int64) error {
	archive, err := zip.NewReader(src, size)
	// entry names are never used as paths here
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return errors.WithMessage(err, "open zip archive")
	}
	var first *zip.File
	files := 0
	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if first == nil {
			first = f
		}
		files++
	}
	if first == nil {
		return errors.Errorf("%s contains no files", src.Name())
	}
	if files > 1 || len(archive.File) > files {
		log.Warn("%s contains %d files and %d directories, only %s is extracted",
			src.Name(), files, len(archive.File)-files, first.Name)
	}

	entry, err := first.Open()
	if err != nil {
		return errors.WithMessagef(err, "open zip entry %s", first.Name)
	}
	defer entry.Close()

	_, err = io.Copy(dst, entry)
	return err
}
