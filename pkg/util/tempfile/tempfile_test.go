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

package tempfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseRemovesFile(t *testing.T) {
	f, err := New(t.TempDir(), "")
	require.NoError(t, err)
	path := f.Path()
	assert.FileExists(t, path)

	require.NoError(t, f.Close())
	assert.NoFileExists(t, path)
	assert.NoError(t, f.Close())
}

func TestNewInParent(t *testing.T) {
	dir := t.TempDir()
	f, err := New(dir, "")
	require.NoError(t, err)
	defer f.Close()

	sibling, err := NewInParent(f)
	require.NoError(t, err)
	defer sibling.Close()

	assert.Equal(t, filepath.Dir(f.Path()), filepath.Dir(sibling.Path()))
	assert.NotEqual(t, f.Path(), sibling.Path())
}

func TestSwap(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, "")
	require.NoError(t, err)
	defer a.Close()
	b, err := New(dir, "")
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Write([]byte("old"))
	require.NoError(t, err)
	_, err = b.Write([]byte("new"))
	require.NoError(t, err)
	oldPath, newPath := a.Path(), b.Path()

	handle := a
	Swap(a, b)
	assert.Same(t, handle, a)
	assert.Equal(t, newPath, a.Path())
	assert.Equal(t, oldPath, b.Path())

	require.NoError(t, b.Close())
	assert.NoFileExists(t, oldPath)

	require.NoError(t, a.Rewind())
	content, err := io.ReadAll(a)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPersist(t *testing.T) {
	dir := t.TempDir()
	f, err := New(dir, "")
	require.NoError(t, err)
	_, err = f.Write([]byte("keep me"))
	require.NoError(t, err)

	target := filepath.Join(dir, "kept")
	require.NoError(t, f.Persist(target))
	require.NoError(t, f.Close())

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content))
}

func TestReopen(t *testing.T) {
	f, err := New(t.TempDir(), "")
	require.NoError(t, err)
	defer f.Close()

	w, err := f.Reopen()
	require.NoError(t, err)
	_, err = w.Write([]byte("via second fd"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len("via second fd")), size)
}
