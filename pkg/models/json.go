// Package models provides the JSON-serialized column types shared by the
// storage engines. Each type implements sql.Scanner and driver.Valuer so gorm
// can round-trip it through a TEXT column.
package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSONStringArray stores an ordered list of strings as a JSON text column.
// Order is preserved exactly as written.
type JSONStringArray []string

// Value serializes the array for storage. A nil array stores as "[]".
func (a JSONStringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, fmt.Errorf("marshal string array: %w", err)
	}
	return string(data), nil
}

// Scan deserializes the array from storage.
func (a *JSONStringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	data, err := asBytes(src)
	if err != nil {
		return fmt.Errorf("scan string array: %w", err)
	}
	return json.Unmarshal(data, (*[]string)(a))
}

// ChunkRecord is the persisted form of one stream chunk. The kind tag selects
// which of the remaining fields are meaningful.
type ChunkRecord struct {
	Kind        string `json:"kind"`
	Content     string `json:"content,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	Message     string `json:"message,omitempty"`
}

// JSONChunkList stores an ordered list of chunk records as a JSON text column.
type JSONChunkList []ChunkRecord

// Value serializes the list for storage. A nil list stores as "[]".
func (l JSONChunkList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]ChunkRecord(l))
	if err != nil {
		return nil, fmt.Errorf("marshal chunk list: %w", err)
	}
	return string(data), nil
}

// Scan deserializes the list from storage.
func (l *JSONChunkList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	data, err := asBytes(src)
	if err != nil {
		return fmt.Errorf("scan chunk list: %w", err)
	}
	return json.Unmarshal(data, (*[]ChunkRecord)(l))
}

func asBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}
