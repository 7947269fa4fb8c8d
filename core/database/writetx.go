package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// BatchSize bounds the number of identifiers bound into a single IN clause.
const BatchSize = 500

// WriteTx is a write transaction on the storage engine. It records a change event for
// every row it touches.
type WriteTx struct {
	tx     *gorm.DB
	events []Event
}

// DB exposes the underlying transaction for reads.
func (w *WriteTx) DB() *gorm.DB {
	return w.tx
}

// Upsert inserts records that do not exist yet and updates the others.
func (w *WriteTx) Upsert(records ...Record) error {
	for i := range records {
		r := records[i]

		var existing []Record
		if err := w.tx.
			Where("domain = ? AND id = ?", r.Domain, r.ID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to look up record %s/%s: %w", r.Domain, r.ID, err)
		}

		if len(existing) == 0 {
			if err := w.tx.Create(&r).Error; err != nil {
				return fmt.Errorf("failed to create record %s/%s: %w", r.Domain, r.ID, err)
			}
			w.events = append(w.events, Event{Kind: EventInsert, Domain: r.Domain, ID: r.ID, Record: &r})
			continue
		}

		r.UpdatedAt = time.Now()
		if err := w.tx.Model(&Record{}).
			Where("domain = ? AND id = ?", r.Domain, r.ID).
			Updates(map[string]any{
				"sort_key":   r.SortKey,
				"payload":    r.Payload,
				"updated_at": r.UpdatedAt,
			}).Error; err != nil {
			return fmt.Errorf("failed to update record %s/%s: %w", r.Domain, r.ID, err)
		}
		prev := existing[0]
		w.events = append(w.events, Event{Kind: EventUpdate, Domain: r.Domain, ID: r.ID, Record: &r, Previous: &prev})
	}
	return nil
}

// Delete removes the given identifiers from domain and returns the number of rows removed.
// Unknown identifiers are ignored.
func (w *WriteTx) Delete(domain string, ids ...string) (int64, error) {
	var removed int64
	for start := 0; start < len(ids); start += BatchSize {
		end := start + BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var existing []string
		if err := w.tx.Model(&Record{}).
			Where("domain = ? AND id IN ?", domain, chunk).
			Pluck("id", &existing).Error; err != nil {
			return removed, fmt.Errorf("failed to look up records in %s: %w", domain, err)
		}
		if len(existing) == 0 {
			continue
		}

		result := w.tx.Where("domain = ? AND id IN ?", domain, existing).Delete(&Record{})
		if result.Error != nil {
			return removed, fmt.Errorf("failed to delete records in %s: %w", domain, result.Error)
		}
		removed += result.RowsAffected
		for _, id := range existing {
			w.events = append(w.events, Event{Kind: EventDelete, Domain: domain, ID: id})
		}
	}
	return removed, nil
}

// DeleteDomain removes every record of domain.
func (w *WriteTx) DeleteDomain(domain string) (int64, error) {
	var ids []string
	if err := w.tx.Model(&Record{}).Where("domain = ?", domain).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to list records in %s: %w", domain, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := w.tx.Where("domain = ?", domain).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete records in %s: %w", domain, result.Error)
	}
	for _, id := range ids {
		w.events = append(w.events, Event{Kind: EventDelete, Domain: domain, ID: id})
	}
	return result.RowsAffected, nil
}
