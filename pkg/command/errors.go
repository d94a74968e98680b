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

package command

import (
	"errors"
	"fmt"

	"github.com/carverauto/fieldradar/pkg/models"
)

var (
	ErrDispatch          = errors.New("dispatch failed")
	ErrNodeBusy          = errors.New("command node busy")
	ErrUnknownNode       = errors.New("unknown command node")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrUnknownDevice     = errors.New("unknown device")
	ErrDeviceOffline     = errors.New("device offline")
	ErrCommandFailed     = errors.New("command failed")
	ErrCommandTimedOut   = errors.New("command timed out")
	ErrIllegalTransition = errors.New("illegal command state transition")
	ErrAwaitTimeout      = errors.New("gave up waiting for command")
	ErrSuperseded        = errors.New("command superseded")
	errMirrorGuard       = errors.New("state mirror requires a completed relay command")
)

// DispatchError is returned when a command could not be written. The command never existed.
type DispatchError struct {
	Node models.NodeIdentity
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v for %s: %v", ErrDispatch, e.Node, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatch, e.Err}
}
