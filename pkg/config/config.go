/*-
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

// Package config loads the JSON configuration files of the fieldradar binaries.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	errInvalidDuration = errors.New("invalid duration")
	errUnsetVariable   = errors.New("environment variable not set")

	// ErrMalformedConfig wraps every decoding failure, including unknown keys.
	ErrMalformedConfig = errors.New("malformed config")
)

// envRef matches ${NAME} references. A bare $ is left alone so webhook templates and
// passwords can contain it.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadFile reads the JSON file at path into dst. ${NAME} references are replaced by the
// environment before decoding, which keeps registry DSNs and webhook tokens out of the
// file. Keys that dst does not declare are rejected so a misspelled setting is not
// silently ignored.
func LoadFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded, err := expandEnv(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
	}

	dec := json.NewDecoder(strings.NewReader(expanded))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s%s: %w", ErrMalformedConfig, path, position(expanded, err), err)
	}

	return nil
}

// LoadAndValidate loads path into cfg and runs its Validate, which also fills defaults.
func LoadAndValidate(path string, cfg Validator) error {
	if err := LoadFile(path, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	return nil
}

func expandEnv(s string) (string, error) {
	var missing []string

	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]

		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}

		return v
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", errUnsetVariable, strings.Join(missing, ", "))
	}

	return out, nil
}

// position renders the line of a JSON syntax or type error, if the decoder reported one.
func position(doc string, err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		offset    int64
	)

	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return ""
	}

	if offset > int64(len(doc)) {
		offset = int64(len(doc))
	}

	return fmt.Sprintf(" line %d", strings.Count(doc[:offset], "\n")+1)
}
