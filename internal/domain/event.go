package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseReading decodes a RawEvent value as a reading object. The storm ID is
// the message key.
func ParseReading(raw RawEvent) (string, Reading, error) {
	var r Reading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return "", nil, fmt.Errorf("parse reading: %w", err)
	}
	if r == nil {
		return "", nil, errors.New("parse reading: empty payload")
	}
	return string(raw.Key), r, nil
}
