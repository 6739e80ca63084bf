package storage

import "time"

// RateSnapshot stores one captured rate table payload.
type RateSnapshot struct {
	ID         string    `json:"id" gorm:"primaryKey;column:id"`
	Base       string    `json:"base" gorm:"column:base"`
	Payload    []byte    `json:"payload" gorm:"column:payload"`
	CapturedAt time.Time `json:"captured_at" gorm:"column:captured_at"`
}

// HistoricalRate stores the rate table payload for one past calendar date.
type HistoricalRate struct {
	Date      string    `json:"date" gorm:"primaryKey;column:date"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// Setting is a runtime-tunable key/value pair (e.g. the worker interval).
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the last outcome of a background job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}
