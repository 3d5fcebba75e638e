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
	"fmt"
	"strings"
)

// Error reports a failed decompression. The caller's artifact is untouched when it is returned.
type Error struct {
	Kind Kind
	Path string
	// Tool and Stderr are set when an external decoder failed.
	Tool   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to decompress %s file %s", e.Kind, e.Path)
	if e.Tool != "" {
		fmt.Fprintf(&b, " with '%s'", e.Tool)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, ", stderr: %s", stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors.Cause reach the underlying failure.
func (e *Error) Cause() error {
	return e.Err
}
