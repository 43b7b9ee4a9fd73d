package domain

import (
	"encoding/json"
	"fmt"
)

// EncodeRecord serializes a record for storage.
func EncodeRecord(r Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	return string(b), nil
}

// DecodeRecord parses and validates a stored record.
// Any failure is reported as ErrMalformed.
func DecodeRecord(s string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// EncodeHistory serializes a history sequence for storage.
func EncodeHistory(entries []HistoryEntry) (string, error) {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}
	return string(b), nil
}

// DecodeHistory parses and validates a stored history sequence.
// One invalid entry makes the whole blob malformed.
func DecodeHistory(s string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
	}
	return entries, nil
}
