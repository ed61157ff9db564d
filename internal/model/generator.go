package model

import "time"

// GenerateRequest represents a one-shot generation request.
// Pointer bools allow distinguishing between missing (nil -> default) and explicit false.
type GenerateRequest struct {
	Length    int   `json:"length"`
	Uppercase *bool `json:"uppercase"`
	Lowercase *bool `json:"lowercase"`
	Numbers   *bool `json:"numbers"`
	Symbols   *bool `json:"symbols"`
}

// GenerateResponse represents a one-shot generation response.
type GenerateResponse struct {
	Value    string `json:"value"`
	Length   int    `json:"length"`
	Copyable bool   `json:"copyable"`
}

// ClassState is a checkbox binding for one character class.
type ClassState struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// Snapshot is an immutable copy of a generator's state.
type Snapshot struct {
	Value        string       `json:"value"`
	Copyable     bool         `json:"copyable"`
	Length       int          `json:"length"`
	MinLength    int          `json:"min_length"`
	MaxLength    int          `json:"max_length"`
	Classes      []ClassState `json:"classes"`
	History      []string     `json:"history"`
	AutoGenerate bool         `json:"auto_generate"`
	Copied       bool         `json:"copied"`
	Generation   uint64       `json:"generation"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	Token     string   `json:"token"`
	SessionID string   `json:"session_id"`
	State     Snapshot `json:"state"`
}

// LengthRequest sets the output length.
type LengthRequest struct {
	Length int `json:"length"`
}

// ToggleRequest enables or disables a boolean option.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// CopyRequest copies the current value, or a history entry when HistoryIndex is set.
type CopyRequest struct {
	HistoryIndex *int `json:"history_index"`
}

// CopyResponse reports the outcome of a copy.
type TokenResponse struct {
	Token string `json:"token"`
}

type CopyResponse struct {
	Copied bool   `json:"copied"`
	Value  string `json:"value"`
}
