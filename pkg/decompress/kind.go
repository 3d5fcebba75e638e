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
	"fmt"

	"github.com/pkg/errors"
)

// MagicSize is the number of leading bytes inspected by Classify.
const MagicSize = 4

// Kind is the compression format of an artifact, derived from its leading bytes.
type Kind int

const (
	None Kind = iota
	Zstd
	Gzip
	Zlib
	Zip
	Cab
)

var kindNames = map[Kind]string{
	None: "none",
	Zstd: "zstd",
	Gzip: "gzip",
	Zlib: "zlib",
	Zip:  "zip",
	Cab:  "cab",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return None, errors.Errorf("unknown compression kind: %q", name)
}

// signature matches a magic prefix. A nil entry in alternatives[i] means any byte.
type signature struct {
	kind         Kind
	alternatives [][]byte
}

func (s signature) match(prefix []byte) bool {
	for _, alt := range s.alternatives {
		if bytes.HasPrefix(prefix, alt) {
			return true
		}
	}
	return false
}

// Evaluated in order, first match wins.
var signatures = []signature{
	{kind: Zstd, alternatives: [][]byte{{0x28, 0xb5, 0x2f, 0xfd}}},
	{kind: Gzip, alternatives: [][]byte{{0x1f, 0x8b}}},
	{kind: Zlib, alternatives: [][]byte{{0x78, 0x01}, {0x78, 0x9c}, {0x78, 0xda}}},
	{kind: Zip, alternatives: [][]byte{{0x50, 0x4b, 0x03, 0x04}}},
	{kind: Cab, alternatives: [][]byte{[]byte("MSCF")}},
}

// Classify maps the leading bytes of an artifact to a Kind.
// Anything shorter than MagicSize is None.
func Classify(prefix []byte) Kind {
	if len(prefix) < MagicSize {
		return None
	}
	prefix = prefix[:MagicSize]
	for _, s := range signatures {
		if s.match(prefix) {
			return s.kind
		}
	}
	return None
}
