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
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/util/tempfile"
)

const (
	WindowsCabTool = "expand"
	CabExtractTool = "cabextract"
)

// ToolCommand is the command line of an external decoder.
type ToolCommand struct {
	Name string
	Args []string
	// StdoutToDest means the decoded content arrives on the tool's stdout,
	// which is then the destination file instead of a pipe.
	StdoutToDest bool
}

// CabCommand builds the command line extracting src into dst on goos.
// A non-empty tool overrides the platform default executable.
func CabCommand(goos string, tool string, src string, dst string) ToolCommand {
	if goos == "windows" {
		if tool == "" {
			tool = WindowsCabTool
		}
		return ToolCommand{
			Name: tool,
			Args: []string{src, dst},
		}
	}

	if tool == "" {
		tool = CabExtractTool
	}
	return ToolCommand{
		Name:         tool,
		Args:         []string{"-sfqp", src},
		StdoutToDest: true,
	}
}

// lossy replaces invalid utf-8 instead of failing on it.
func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// decompressCab runs the external cab extractor. dst is written by the child process.
func (g *Gateway) decompressCab(ctx context.Context, src *tempfile.File, dst *tempfile.File) error {
	command := CabCommand(runtime.GOOS, g.config.CabTool, src.Path(), dst.Path())

	if g.config.ExternalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.ExternalTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if command.StdoutToDest {
		out, err := dst.Reopen()
		if err != nil {
			return &Error{Kind: Cab, Path: src.Path(), Tool: command.Name, Err: err}
		}
		defer out.Close()
		cmd.Stdout = out
	} else {
		cmd.Stdout = &stdout
	}

	runErr := cmd.Run()

	stdoutStr := lossy(stdout.Bytes())
	stderrStr := lossy(stderr.Bytes())
	log.Info("command executed: %s", cmd.String())
	log.Info("command stdout: %s", stdoutStr)
	log.Info("command stderr: %s", stderrStr)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = errors.WithMessage(runErr, ctxErr.Error())
		}
		log.Error("failed to decompress CAB file with '%s': %s, stderr: %s", command.Name, src.Path(), stderrStr)
		return &Error{
			Kind:   Cab,
			Path:   src.Path(),
			Tool:   command.Name,
			Stderr: stderrStr,
			Err:    runErr,
		}
	}

	log.Info("successfully decompressed CAB file using '%s': %s", command.Name, src.Path())
	return nil
}
