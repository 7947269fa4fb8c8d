package reconcile

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Identifiable is any model with a stable string identifier.
type Identifiable interface {
	Identifier() string
}

// ChangeKind is the type of a change-list entry.
type ChangeKind int

const (
	// Insert adds an item unknown to the repository.
	Insert ChangeKind = iota + 1
	// Update replaces the value of a known item.
	Update
	// Delete removes a known item. Only the identifier is carried.
	Delete
)

// String returns the lowercase name of the kind.
func (k ChangeKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Change is a single change-list entry. Item is the zero value for deletes.
type Change[M any] struct {
	Kind ChangeKind `json:"kind"`
	ID   string     `json:"id"`
	Item M          `json:"item,omitempty"`
}

// Inserted builds an Insert change for item.
func Inserted[M Identifiable](item M) Change[M] {
	return Change[M]{Kind: Insert, ID: item.Identifier(), Item: item}
}

// Updated builds an Update change for item.
func Updated[M Identifiable](item M) Change[M] {
	return Change[M]{Kind: Update, ID: item.Identifier(), Item: item}
}

// Deleted builds a Delete change for id.
func Deleted[M any](id string) Change[M] {
	return Change[M]{Kind: Delete, ID: id}
}

// EqualFunc reports whether two values of the same entity are structurally equal.
type EqualFunc[M any] func(a, b M) bool

// exportAll lets cmp descend into unexported fields instead of panicking on them.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// Equal is the default structural comparer. Types with an Equal method are compared
// through it; unexported fields are compared like exported ones.
func Equal[M any](a, b M) bool {
	return cmp.Equal(a, b, exportAll)
}

// Summary counts the entries of a change-list by kind.
type Summary struct {
	Inserts int `json:"inserts"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// Total returns the number of changes.
func (s Summary) Total() int {
	return s.Inserts + s.Updates + s.Deletes
}

// Empty reports whether no change was counted.
func (s Summary) Empty() bool {
	return s.Total() == 0
}
