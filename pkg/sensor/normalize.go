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

// Package sensor normalizes soil-sensor pushes and decides which readings to keep.
package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/fieldradar/pkg/channel"
	"github.com/carverauto/fieldradar/pkg/models"
)

// aliases maps every accepted spelling to its canonical field name.
var aliases = map[string]string{
	"moisture": "moisture", "soil_moisture": "moisture", "m": "moisture",
	"temperature": "temperature", "soil_temperature": "temperature", "temp": "temperature", "t": "temperature",
	"humidity": "humidity", "air_humidity": "humidity", "hum": "humidity", "h": "humidity",
	"ph": "ph", "soil_ph": "ph",
	"conductivity": "conductivity", "soil_ec": "conductivity", "ec": "conductivity", "cond": "conductivity",
	"nitrogen": "nitrogen", "soil_nitrogen": "nitrogen", "n": "nitrogen",
	"phosphorus": "phosphorus", "soil_phosphorus": "phosphorus", "p": "phosphorus",
	"potassium": "potassium", "soil_potassium": "potassium", "k": "potassium",
}

func field(v *models.SensorValues, canonical string) **float64 {
	switch canonical {
	case "moisture":
		return &v.Moisture
	case "temperature":
		return &v.Temperature
	case "humidity":
		return &v.Humidity
	case "ph":
		return &v.PH
	case "conductivity":
		return &v.Conductivity
	case "nitrogen":
		return &v.Nitrogen
	case "phosphorus":
		return &v.Phosphorus
	case "potassium":
		return &v.Potassium
	}

	return nil
}

// Normalize folds raw field names into the fixed reading shape. Unknown fields and values
// that are not numbers are dropped.
func Normalize(
	deviceID string, raw map[string]any, sourceTs time.Time, bootRelative bool, receivedAt time.Time,
) models.SensorReading {
	reading := models.SensorReading{
		DeviceID:        deviceID,
		SourceTimestamp: sourceTs,
		BootRelative:    bootRelative,
		ReceivedAt:      receivedAt,
	}

	for name, value := range raw {
		canonical, ok := aliases[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")]
		if !ok {
			continue
		}

		f, ok := number(value)
		if !ok {
			continue
		}

		*field(&reading.Values, canonical) = &f
	}

	return reading
}

func number(value any) (float64, bool) {
	var f float64

	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}

		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

const (
	// Device clocks below this many seconds are uptime counters, not epoch time.
	epochFloor = 1e9
	// Epoch milliseconds of 9999-12-31T23:59:59Z. Larger values do not fit a time.Time.
	epochCeilingMillis = 253402300799000
)

// ParseEvent decodes the latest reading the bridge wrote at "readings/{device}". The
// document holds the values either under "values" or at the top level, next to an optional
// "timestamp" that is RFC 3339, epoch seconds, epoch milliseconds, or seconds since boot.
func ParseEvent(ev channel.Event, receivedAt time.Time) (models.SensorReading, error) {
	parts := strings.Split(ev.Path, "/")
	if len(parts) < 2 || parts[0] != models.ReadingsRoot || parts[1] == "" {
		return models.SensorReading{}, fmt.Errorf("%w: %s", ErrMalformedReading, ev.Path)
	}

	var doc map[string]any

	dec := json.NewDecoder(strings.NewReader(string(ev.Value)))
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return models.SensorReading{}, fmt.Errorf("%w: %w", ErrMalformedReading, err)
	}

	sourceTs, bootRelative, err := parseTimestamp(doc["timestamp"])
	if err != nil {
		return models.SensorReading{}, err
	}

	raw := doc
	if values, ok := doc["values"].(map[string]any); ok {
		raw = values
	}

	return Normalize(parts[1], raw, sourceTs, bootRelative, receivedAt), nil
}

func parseTimestamp(value any) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, nil
	}

	if s, ok := value.(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err == nil {
			return ts, false, nil
		}
	}

	f, ok := number(value)
	if !ok || f < 0 || f > epochCeilingMillis {
		return time.Time{}, false, fmt.Errorf("%w: timestamp %v", ErrMalformedReading, value)
	}

	switch {
	case f >= epochFloor*1000:
		return time.UnixMilli(int64(f)).UTC(), false, nil
	case f >= epochFloor:
		return time.Unix(int64(f), 0).UTC(), false, nil
	default:
		return time.Unix(int64(f), 0).UTC(), true, nil
	}
}
