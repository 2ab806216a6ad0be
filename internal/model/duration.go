// Package model содержит доменные типы: плейлисты, элементы плейлистов и результаты подсчёта.
package model

import (
	"encoding/json"
	"fmt"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Duration суммарная длительность плейлиста, разложенная на дни, часы, минуты и секунды
type Duration struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// DurationFromMillis переводит миллисекунды в Duration.
// Дробная часть секунды отбрасывается, отрицательные значения считаются нулём.
func DurationFromMillis(ms int64) Duration {
	if ms < 0 {
		ms = 0
	}

	total := ms / 1000

	return Duration{
		Days:    total / secondsPerDay,
		Hours:   total % secondsPerDay / secondsPerHour,
		Minutes: total % secondsPerHour / secondsPerMinute,
		Seconds: total % secondsPerMinute,
	}
}

// TotalSeconds возвращает длительность в секундах
func (d Duration) TotalSeconds() int64 {
	return d.Days*secondsPerDay + d.Hours*secondsPerHour + d.Minutes*secondsPerMinute + d.Seconds
}

// String возвращает длительность в формате "1d 2h 3m 4s"
func (d Duration) String() string {
	return fmt.Sprintf("%dd %dh %dm %ds", d.Days, d.Hours, d.Minutes, d.Seconds)
}

// ParseDuration разбирает строку формата "1d 2h 3m 4s"
func ParseDuration(s string) (Duration, error) {
	var d Duration
	if _, err := fmt.Sscanf(s, "%dd %dh %dm %ds", &d.Days, &d.Hours, &d.Minutes, &d.Seconds); err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// MarshalJSON записывает длительность строкой
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON принимает как строку, так и старый объектный формат {"days":..,"hours":..}
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseDuration(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	type legacy Duration
	var obj legacy
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(obj)
	return nil
}
