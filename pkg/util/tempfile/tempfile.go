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


// Package tempfile provides a named temporary file that is removed when it is
// closed, unless ownership of the path was handed over with Persist.
package tempfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultPattern = ".artifact-*"

type File struct {
	file *os.File
	path string
}

// New creates a uniquely named file in dir. An empty dir means os.TempDir().
func New(dir string, pattern string) (*File, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, errors.WithMessagef(err, "create temp file in %s", dir)
	}
	path, err := filepath.Abs(f.Name())
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &File{
		file: f,
		path: path,
	}, nil
}

// NewInParent creates a new temp file next to f, so both live on the same filesystem.
func NewInParent(f *File) (*File, error) {
	dir := filepath.Dir(f.path)
	if dir == "" || dir == f.path {
		return nil, errors.WithMessagef(os.ErrNotExist, "parent directory of %s", f.path)
	}
	return New(dir, DefaultPattern)
}

func (f *File) Path() string {
	return f.path
}

func (f *File) File() *os.File {
	return f.file
}

// Sync flushes the file to durable storage.
func (f *File) Sync() error {
	if err := f.file.Sync(); err != nil {
		return errors.WithMessagef(err, "sync %s", f.path)
	}
	return nil
}

func (f *File) Size() (int64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, errors.WithMessagef(err, "stat %s", f.path)
	}
	return info.Size(), nil
}

func (f *File) Rewind() error {
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return errors.WithMessagef(err, "rewind %s", f.path)
	}
	return nil
}

// Reopen opens a second descriptor on the same path for writing.
// The caller closes it; the path stays owned by f.
func (f *File) Reopen() (*os.File, error) {
	return os.OpenFile(f.path, os.O_WRONLY, 0)
}

func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

// Close releases the descriptor and removes the backing file. Safe to call more than once.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	closeErr := f.file.Close()
	f.file = nil
	if f.path != "" {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.WithMessagef(err, "remove %s", f.path)
		}
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return closeErr
	}
	return nil
}

// Persist moves the file to path and gives up ownership: Close no longer removes it.
func (f *File) Persist(path string) error {
	if f.file == nil {
		return errors.WithMessagef(os.ErrClosed, "persist %s", f.path)
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := os.Rename(f.path, path); err != nil {
		return errors.WithMessagef(err, "persist %s to %s", f.path, path)
	}
	f.path = path
	err := f.file.Close()
	f.file = nil
	return err
}

// Swap exchanges the identities of a and b in memory. Nothing is renamed on disk.
func Swap(a, b *File) {
	*a, *b = *b, *a
}
