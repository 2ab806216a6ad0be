package model

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder порядок сортировки результатов по длительности
type SortOrder string

const (
	SortDescending SortOrder = "desc"
	SortAscending  SortOrder = "asc"
)

// ProcessingResult результат подсчёта длительности одного плейлиста
type ProcessingResult struct {
	ID               string   `json:"id"`
	Duration         Duration `json:"duration"`
	URL              string   `json:"url"`
	Image            *string  `json:"image"`
	TracksProcessed  int      `json:"tracks_processed"`
	PodcastsFiltered int      `json:"podcasts_filtered"`
	InvalidTracks    int      `json:"invalid_tracks"`
	Listened         bool     `json:"listened"`
}

// Entry именованная запись результатов
type Entry struct {
	Name   string
	Result ProcessingResult
}

// Results результаты, ключ - название плейлиста
type Results map[string]ProcessingResult

// ProcessedIDs возвращает множество ID уже обработанных плейлистов
func (r Results) ProcessedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r))
	for _, res := range r {
		if res.ID != "" {
			ids[res.ID] = struct{}{}
		}
	}
	return ids
}

// Merge добавляет записи other, перезаписывая одноимённые
func (r Results) Merge(other Results) {
	for name, res := range other {
		r[name] = res
	}
}

// Sorted возвращает записи, отсортированные по длительности.
// При равной длительности порядок определяется названием.
func (r Results) Sorted(order SortOrder) []Entry {
	entries := make([]Entry, 0, len(r))
	for name, res := range r {
		entries = append(entries, Entry{Name: name, Result: res})
	}

	col := collate.New(language.Und)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Result.Duration.TotalSeconds(), entries[j].Result.Duration.TotalSeconds()
		if a != b {
			if order == SortAscending {
				return a < b
			}
			return a > b
		}
		if c := col.CompareString(entries[i].Name, entries[j].Name); c != 0 {
			return c < 0
		}
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// ParseSortOrder разбирает порядок сортировки, по умолчанию по убыванию
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortAscending {
		return SortAscending
	}
	return SortDescending
}
