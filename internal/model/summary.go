package model

import "time"

// RunSummary итог прогона
type RunSummary struct {
	RunID     string
	Listed    int
	Skipped   int
	Processed int
	Failed    int
	Stalled   int
	Elapsed   time.Duration
	// Saved записи файла результатов после сохранения, в порядке файла
	Saved []Entry
}
