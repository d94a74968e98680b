/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package channel

import "strings"

// Clean normalizes a path: no leading or trailing slash, no empty segments.
func Clean(path string) string {
	parts := strings.Split(path, "/")
	out := parts[:0]

	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, "/")
}

// Join builds a cleaned path from segments.
func Join(segments ...string) string {
	return Clean(strings.Join(segments, "/"))
}

// Under reports whether path is prefix itself or a descendant of it.
func Under(path, prefix string) bool {
	if prefix == "" {
		return true
	}

	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
