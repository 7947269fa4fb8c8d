package database

import "time"

// Record is the native row type of the storage engine. Every logical collection is a
// domain partition of the same table.
type Record struct {
	Domain    string    `gorm:"column:domain;primaryKey;size:191"`
	ID        string    `gorm:"column:id;primaryKey;size:191"`
	SortKey   string    `gorm:"column:sort_key;size:191;index"`
	Payload   []byte    `gorm:"column:payload"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName overrides the table name.
func (Record) TableName() string {
	return "records"
}

// EventKind is the type of a storage change event.
type EventKind int

const (
	EventInsert EventKind = iota + 1
	EventUpdate
	EventDelete
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "insert"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a committed change of a single record. Record is nil for deletes, Previous
// is only set for updates and holds the row as it was before the write.
type Event struct {
	Kind     EventKind
	Domain   string
	ID       string
	Record   *Record
	Previous *Record
}
