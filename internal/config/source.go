package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// source значения конфигурации: переменные окружения, затем файл
type source struct {
	lookup func(key string) (string, bool)
	file   map[string]string
}

func newSource() *source {
	return &source{lookup: os.LookupEnv}
}

func (s *source) value(key string) (string, bool) {
	if v, ok := s.lookup(key); ok && v != "" {
		return v, true
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v, true
	}
	return "", false
}

// getEnv получает значение с значением по умолчанию
func (s *source) getEnv(key, defaultValue string) string {
	if value, ok := s.value(key); ok {
		return value
	}
	return defaultValue
}

// getEnvFallback получает первое заданное значение из списка ключей
func (s *source) getEnvFallback(keys ...string) string {
	for _, key := range keys {
		if value, ok := s.value(key); ok {
			return value
		}
	}
	return ""
}

// getEnvInt получает значение как int
func (s *source) getEnvInt(key string, defaultValue int) int {
	if value, ok := s.value(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает значение как float64
func (s *source) getEnvFloat(key string, defaultValue float64) float64 {
	if value, ok := s.value(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает значение как time.Duration
func (s *source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := s.value(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает значение как bool
func (s *source) getEnvBool(key string, defaultValue bool) bool {
	if value, ok := s.value(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// readFile читает YAML-файл конфигурации. Ключи совпадают с именами переменных
// окружения в нижнем регистре, списки склеиваются через запятую.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		var value string
		switch typed := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(typed))
			for _, item := range typed {
				parts = append(parts, fmt.Sprint(item))
			}
			value = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("config file %s: key %q must be a scalar or a list", path, key)
		default:
			value = fmt.Sprint(typed)
		}
		values[strings.ToUpper(key)] = value
	}

	return values, nil
}
