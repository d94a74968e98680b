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

package models

import "time"

// SensorValues is the fixed shape of a soil-sensor reading. Every field is optional.
type SensorValues struct {
	Moisture     *float64 `json:"moisture,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	PH           *float64 `json:"ph,omitempty"`
	Conductivity *float64 `json:"conductivity,omitempty"`
	Nitrogen     *float64 `json:"nitrogen,omitempty"`
	Phosphorus   *float64 `json:"phosphorus,omitempty"`
	Potassium    *float64 `json:"potassium,omitempty"`
}

func (v *SensorValues) fields() []*float64 {
	return []*float64{
		v.Moisture, v.Temperature, v.Humidity, v.PH,
		v.Conductivity, v.Nitrogen, v.Phosphorus, v.Potassium,
	}
}

// Empty reports whether every value is null.
func (v *SensorValues) Empty() bool {
	for _, f := range v.fields() {
		if f != nil {
			return false
		}
	}

	return true
}

// Equal compares values field by field; two nulls are equal.
func (v *SensorValues) Equal(other *SensorValues) bool {
	a, b := v.fields(), other.fields()

	for i := range a {
		switch {
		case a[i] == nil && b[i] == nil:
			continue
		case a[i] == nil || b[i] == nil:
			return false
		case *a[i] != *b[i]:
			return false
		}
	}

	return true
}

// SensorReading is a single push from a soil-sensor node. When BootRelative is set,
// SourceTimestamp is measured from device boot and cannot be compared to wall time.
type SensorReading struct {
	DeviceID        string       `json:"device_id"`
	Values          SensorValues `json:"values"`
	SourceTimestamp time.Time    `json:"source_timestamp"`
	BootRelative    bool         `json:"boot_relative,omitempty"`
	ReceivedAt      time.Time    `json:"received_at"`
}

// EffectiveTime is the instant used to compare two readings of the same device.
func (r *SensorReading) EffectiveTime() time.Time {
	if r.BootRelative || r.SourceTimestamp.IsZero() {
		return r.ReceivedAt
	}

	return r.SourceTimestamp
}
