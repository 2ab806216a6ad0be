// Package store хранит результаты подсчёта в JSON-файле.
//
// Файл представляет собой объект "название плейлиста" -> результат. Порядок ключей
// в файле совпадает с порядком сортировки, поэтому файл пишется вручную, а не
// через map.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/based-on-what/Zortify/internal/model"
	"go.uber.org/zap"
)

const (
	indent         = "    "
	filePermission = 0o644
)

// ErrMalformed файл результатов не удалось разобрать
var ErrMalformed = errors.New("malformed stored results")

// Store файловое хранилище результатов
type Store struct {
	path   string
	order  model.SortOrder
	logger *zap.Logger
}

// New создает хранилище результатов в файле path
func New(path string, order model.SortOrder, logger *zap.Logger) *Store {
	if order == "" {
		order = model.SortDescending
	}
	return &Store{
		path:   path,
		order:  order,
		logger: logger,
	}
}

// Path возвращает путь к файлу результатов
func (s *Store) Path() string {
	return s.path
}

// Load возвращает сохранённые результаты. Отсутствующий или повреждённый файл
// считается пустым.
func (s *Store) Load() model.Results {
	entries, err := s.Entries()
	if err != nil {
		s.logger.Warn("Stored results are unreadable, starting from empty",
			zap.String("path", s.path),
			zap.Error(err))
		return model.Results{}
	}

	results := make(model.Results, len(entries))
	for _, e := range entries {
		results[e.Name] = e.Result
	}
	return results
}

// Entries возвращает записи в порядке файла
func (s *Store) Entries() ([]model.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	return entries, nil
}

// Save объединяет новые результаты с сохранёнными, сортирует и перезаписывает файл
func (s *Store) Save(delta model.Results) ([]model.Entry, error) {
	results := s.Load()
	results.Merge(delta)

	entries := results.Sorted(s.order)
	if err := s.write(entries); err != nil {
		return nil, err
	}

	s.logger.Info("Results saved",
		zap.String("path", s.path),
		zap.Int("new", len(delta)),
		zap.Int("total", len(entries)),
		zap.String("order", string(s.order)))

	return entries, nil
}

// Reverse переписывает файл в обратном порядке записей
func (s *Store) Reverse() error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if err := s.write(entries); err != nil {
		return err
	}

	s.logger.Info("Results order reversed", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// MarkListened выставляет флаг listened у всех записей, сохраняя порядок
func (s *Store) MarkListened(listened bool) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}

	for i := range entries {
		entries[i].Result.Listened = listened
	}

	if err := s.write(entries); err != nil {
		return err
	}

	s.logger.Info("Listened flag updated",
		zap.String("path", s.path),
		zap.Bool("listened", listened),
		zap.Int("entries", len(entries)))
	return nil
}

// write атомарно записывает файл: сначала во временный файл, затем rename
func (s *Store) write(entries []model.Entry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePermission); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set results permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace results file: %w", err)
	}

	return nil
}

// encodeEntries пишет объект с ключами в заданном порядке
func encodeEntries(entries []model.Entry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")

	for i, e := range entries {
		key, err := marshal(e.Name, "")
		if err != nil {
			return nil, err
		}
		value, err := marshal(e.Result, indent)
		if err != nil {
			return nil, err
		}

		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshal кодирует значение без экранирования HTML и не-ASCII символов
func marshal(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeEntries читает объект, сохраняя порядок ключей.
// Повторный ключ заменяет значение, но остаётся на первой позиции.
func decodeEntries(data []byte) ([]model.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []model.Entry
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}

		var res model.ProcessingResult
		if err := dec.Decode(&res); err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}

		if i, seen := index[name]; seen {
			entries[i].Result = res
			continue
		}
		index[name] = len(entries)
		entries = append(entries, model.Entry{Name: name, Result: res})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after results object")
	}

	return entries, nil
}
