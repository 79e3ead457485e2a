/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */

package core

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var LineSeparator string = "\n"

var Nothing = struct{}{}

func FileExists(name string) bool {
	info, err := os.Lstat(name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func IfBlank(value string, blankValue string) string {
	if strings.TrimSpace(value) == "" {
		return blankValue
	}
	return value
}

func StringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

func DistinctSliceAndTrim(slice []string) []string {
	result := make([]string, 0, len(slice))
	seen := map[string]struct{}{}
	for _, item := range slice {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

var identifierRegex *regexp.Regexp
var identifierRegexOnce sync.Once

// ValidateLowerIdentifier checks an identifier against the
// `[a-z_][a-z0-9_]*` format.
func ValidateLowerIdentifier(identifier string) error {
	identifierRegexOnce.Do(func() {
		identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	})
	if !identifierRegex.MatchString(identifier) {
		return fmt.Errorf("identifier %q does not match [a-z_][a-z0-9_]*", identifier)
	}
	return nil
}

func TrimAndLower(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
