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

package file

import (
	"os"

	xglob "github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

func MatchWithRecursive(pattern, name string) (matched bool, err error) {
	return xglob.Match(pattern, name)
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return errors.WithMessagef(err, "Error creating directory: %s", dir)
		}
	}
	return nil
}

// IsHidden reports names such as in-flight temp files that start with a dot.
func IsHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
