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

package size

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

var sizeReg = regexp.MustCompile(`^(\d+(\.\d+)?)\s*(?i:(KB|MB|GB|B))?$`)

// Size is a byte count written in config as "512", "64KB", "1.5GB". Units are binary.
type Size struct {
	Bytes int64
}

func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var sizeStr string
	if err := unmarshal(&sizeStr); err != nil {
		return err
	}

	bytes, err := Parse(sizeStr)
	if err != nil {
		return err
	}
	s.Bytes = bytes
	return nil
}

func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s Size) String() string {
	bytes := float64(s.Bytes)
	switch {
	case s.Bytes >= GB:
		return strconv.FormatFloat(bytes/GB, 'f', 2, 64) + "GB"
	case s.Bytes >= MB:
		return strconv.FormatFloat(bytes/MB, 'f', 2, 64) + "MB"
	case s.Bytes >= KB:
		return strconv.FormatFloat(bytes/KB, 'f', 2, 64) + "KB"
	default:
		return strconv.FormatInt(s.Bytes, 10) + "B"
	}
}

// Exceeded reports whether n is above a non-zero limit.
func (s Size) Exceeded(n int64) bool {
	return s.Bytes > 0 && n > s.Bytes
}

func Parse(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)

	match := sizeReg.FindStringSubmatch(sizeStr)
	if match == nil {
		return 0, errors.Errorf("invalid size format: %s", sizeStr)
	}

	size, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, errors.Errorf("invalid size format: %s", sizeStr)
	}

	switch strings.ToUpper(match[3]) {
	case "KB":
		size *= KB
	case "MB":
		size *= MB
	case "GB":
		size *= GB
	}
	return int64(size), nil
}
