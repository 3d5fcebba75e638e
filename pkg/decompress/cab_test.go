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
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCabCommand(t *testing.T) {
	tests := []struct {
		name string
		goos string
		tool string
		want ToolCommand
	}{
		{
			name: "windows",
			goos: "windows",
			want: ToolCommand{Name: "expand", Args: []string{"src.cab", "dst"}},
		},
		{
			name: "linux",
			goos: "linux",
			want: ToolCommand{Name: "cabextract", Args: []string{"-sfqp", "src.cab"}, StdoutToDest: true},
		},
		{
			name: "darwin",
			goos: "darwin",
			want: ToolCommand{Name: "cabextract", Args: []string{"-sfqp", "src.cab"}, StdoutToDest: true},
		},
		{
			name: "override",
			goos: "linux",
			tool: "/opt/bin/cabextract",
			want: ToolCommand{Name: "/opt/bin/cabextract", Args: []string{"-sfqp", "src.cab"}, StdoutToDest: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CabCommand(tt.goos, tt.tool, "src.cab", "dst"))
		})
	}
}

func TestLossy(t *testing.T) {
	assert.Equal(t, "ok � done", lossy([]byte("ok \xff\xfe done")))
	assert.Equal(t, "plain", lossy([]byte("plain")))
}

func TestMaybeDecompress_CabFailure(t *testing.T) {
	dir := t.TempDir()
	// classified as cab, but not an archive any extractor accepts
	content := append([]byte("MSCF"), []byte("this is not a cabinet")...)
	src := newArtifact(t, dir, content)
	path := src.Path()

	err := MaybeDecompress(context.Background(), src)
	require.Error(t, err)

	tool := CabCommand(runtime.GOOS, "", "", "").Name
	assert.Contains(t, err.Error(), tool)
	var decompressErr *Error
	require.True(t, errors.As(err, &decompressErr))
	assert.Equal(t, Cab, decompressErr.Kind)
	assert.Equal(t, tool, decompressErr.Tool)

	assert.Equal(t, path, src.Path())
	assert.Equal(t, content, readAll(t, src))
	assert.Equal(t, []string{filepath.Base(path)}, dirEntries(t, dir))
}

// writeTool puts an executable shell script standing in for cabextract into a new directory.
func writeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "fake-cabextract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	return path
}

func TestMaybeDecompress_CabStdoutIsDestination(t *testing.T) {
	tool := writeTool(t, `printf 'extracted %s' "$1"; echo 'some diagnostics' >&2`)
	dir := t.TempDir()
	src := newArtifact(t, dir, append([]byte("MSCF"), 0, 0, 0, 0))
	compressedPath := src.Path()

	g := NewGateway(&Config{CabTool: tool})
	require.NoError(t, g.MaybeDecompress(context.Background(), src))

	assert.Equal(t, "extracted -sfqp", string(readAll(t, src)))
	assert.Equal(t, dir, filepath.Dir(src.Path()))
	assert.NoFileExists(t, compressedPath)
	assert.Equal(t, []string{filepath.Base(src.Path())}, dirEntries(t, dir))
}

func TestMaybeDecompress_CabExitStatus(t *testing.T) {
	tool := writeTool(t, `echo 'bad cabinet header' >&2; exit 3`)
	content := append([]byte("MSCF"), 1, 2, 3, 4)
	src := newArtifact(t, t.TempDir(), content)

	err := NewGateway(&Config{CabTool: tool}).MaybeDecompress(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), tool)
	assert.Contains(t, err.Error(), "bad cabinet header")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Equal(t, content, readAll(t, src))
}

func TestMaybeDecompress_CabTimeout(t *testing.T) {
	tool := writeTool(t, `exec sleep 30`)
	content := append([]byte("MSCF"), 1, 2, 3, 4)
	src := newArtifact(t, t.TempDir(), content)

	start := time.Now()
	err := NewGateway(&Config{CabTool: tool, ExternalTimeout: 200 * time.Millisecond}).
		MaybeDecompress(context.Background(), src)
	require.Error(t, err)
	assert.Less(t, int64(time.Since(start)), int64(10*time.Second))
	assert.Contains(t, err.Error(), tool)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
	assert.Equal(t, content, readAll(t, src))
}

// minimalCab builds a single-folder, single-file cabinet with uncompressed data.
func minimalCab(name string, content []byte) []byte {
	const (
		headerSize = 36
		folderSize = 8
		fileSize   = 16
		dataSize   = 8
	)
	filesOffset := headerSize + folderSize
	dataOffset := filesOffset + fileSize + len(name) + 1
	total := dataOffset + dataSize + len(content)

	var buf bytes.Buffer
	le := binary.LittleEndian
	w := func(v interface{}) {
		_ = binary.Write(&buf, le, v)
	}

	// CFHEADER
	buf.WriteString("MSCF")
	w(uint32(0))           // reserved1
	w(uint32(total))       // cbCabinet
	w(uint32(0))           // reserved2
	w(uint32(filesOffset)) // coffFiles
	w(uint32(0))           // reserved3
	w(uint8(3))            // versionMinor
	w(uint8(1))            // versionMajor
	w(uint16(1))           // cFolders
	w(uint16(1))           // cFiles
	w(uint16(0))           // flags
	w(uint16(0))           // setID
	w(uint16(0))           // iCabinet

	// CFFOLDER
	w(uint32(dataOffset)) // coffCabStart
	w(uint16(1))          // cCFData
	w(uint16(0))          // typeCompress: none

	// CFFILE
	w(uint32(len(content))) // cbFile
	w(uint32(0))            // uoffFolderStart
	w(uint16(0))            // iFolder
	w(uint16(0x21))         // date: 1980-01-01
	w(uint16(0))            // time
	w(uint16(0x20))         // attribs: archive
	buf.WriteString(name)
	buf.WriteByte(0)

	// CFDATA
	w(uint32(0)) // csum: not checked
	w(uint16(len(content)))
	w(uint16(len(content)))
	buf.Write(content)

	return buf.Bytes()
}

func TestMaybeDecompress_CabExtract(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("expand writes files, covered by the command line test")
	}
	if _, err := exec.LookPath(CabExtractTool); err != nil {
		t.Skipf("%s not installed", CabExtractTool)
	}

	dir := t.TempDir()
	cab := minimalCab("hello.txt", []byte("hello from a cabinet"))
	require.Equal(t, []byte("MSCF"), cab[:4])
	src := newArtifact(t, dir, cab)

	require.NoError(t, MaybeDecompress(context.Background(), src))
	assert.Equal(t, "hello from a cabinet", string(readAll(t, src)))
	assert.Equal(t, []string{filepath.Base(src.Path())}, dirEntries(t, dir))
}
