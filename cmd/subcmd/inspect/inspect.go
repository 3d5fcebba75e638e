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

package inspect

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/decompress"
)

const SubCommandInspect = "inspect"

var (
	inspectCmd *flag.FlagSet
	strict     bool
	kindFilter string
)

func init() {
	inspectCmd = flag.NewFlagSet(SubCommandInspect, flag.ExitOnError)
	inspectCmd.BoolVar(&strict, "strict", false, "fail when any file cannot be read")
	inspectCmd.StringVar(&kindFilter, "kind", "", "only list files of this kind: none, zstd, gzip, zlib, zip or cab")
	log.SetFlag(inspectCmd)
}

// RunInspect prints the detected compression of every file argument without
// touching the files.
func RunInspect(args []string) error {
	if err := inspectCmd.Parse(args); err != nil {
		return err
	}
	log.InitDefaultLogger()

	if inspectCmd.NArg() == 0 {
		return errors.New("usage: artifactgate inspect [-strict] [-kind <kind>] <file>...")
	}

	var only *decompress.Kind
	if kindFilter != "" {
		kind, err := decompress.ParseKind(kindFilter)
		if err != nil {
			return err
		}
		only = &kind
	}

	failed := Inspect(os.Stdout, inspectCmd.Args(), only)
	if strict && failed > 0 {
		return errors.Errorf("%d of %d files could not be inspected", failed, inspectCmd.NArg())
	}
	return nil
}

// Inspect writes "<kind>\t<path>" for every path, skipping kinds other than only
// when it is set. It returns the number of files that could not be read.
func Inspect(out io.Writer, paths []string, only *decompress.Kind) int {
	var failed int
	for _, path := range paths {
		kind, err := Detect(path)
		if err != nil {
			failed++
			log.Warn("inspect %s failed: %v", path, err)
			continue
		}
		if only != nil && kind != *only {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", kind, path)
	}
	return failed
}

// Detect classifies the file at path by its leading bytes.
func Detect(path string) (decompress.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return decompress.None, err
	}
	defer f.Close()

	prefix := make([]byte, decompress.MagicSize)
	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return decompress.None, errors.WithMessagef(err, "read %s", path)
	}
	return decompress.Classify(prefix[:n]), nil
}
