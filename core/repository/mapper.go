package repository

import (
	"encoding/json"
	"fmt"

	"syncstore/core/database"
	"syncstore/core/reconcile"
)

// Mapper converts between a model and the native record of the storage engine.
// The repository owns the domain and identifier columns of the record, a mapper only
// needs to fill the payload and optionally the sort key.
type Mapper[M any] interface {
	ToRecord(item M) (database.Record, error)
	FromRecord(record database.Record) (M, error)
}

// JSONMapper stores models as JSON payloads.
type JSONMapper[M reconcile.Identifiable] struct {
	// SortKey derives the ordering column. Items are ordered by identifier when nil.
	SortKey func(M) string
}

// ToRecord implements Mapper.
func (m JSONMapper[M]) ToRecord(item M) (database.Record, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return database.Record{}, fmt.Errorf("failed to encode %s: %w", item.Identifier(), err)
	}
	r := database.Record{ID: item.Identifier(), Payload: payload}
	if m.SortKey != nil {
		r.SortKey = m.SortKey(item)
	}
	return r, nil
}

// FromRecord implements Mapper.
func (m JSONMapper[M]) FromRecord(record database.Record) (M, error) {
	var item M
	if err := json.Unmarshal(record.Payload, &item); err != nil {
		return item, fmt.Errorf("failed to decode %s/%s: %w", record.Domain, record.ID, err)
	}
	return item, nil
}
