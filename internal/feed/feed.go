// Package feed carries "collection changed" notifications between the
// writers of the ledger and the readers that hold a copy of it.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names one of the four ledger collections.
type Kind string

const (
	KindClasses  Kind = "classes"
	KindStudents Kind = "students"
	KindPayments Kind = "payments"
	KindExpenses Kind = "expenses"
)

// Kinds lists every collection, in load order.
var Kinds = []Kind{KindClasses, KindStudents, KindPayments, KindExpenses}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindClasses, KindStudents, KindPayments, KindExpenses:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpResync asks readers to refetch every collection, e.g. after a
	// transport reconnected and may have missed events.
	OpResync Op = "resync"
)

// Event says that a collection changed. Readers refetch the whole
// collection; the id is informational.
type Event struct {
	Kind Kind      `json:"kind"`
	Op   Op        `json:"op"`
	ID   uuid.UUID `json:"id"`
	At   time.Time `json:"at"`
}

// Affects reports which collections a reader must refetch after the event.
// Deleting a class clears it from students; deleting a student removes its
// payments.
func (e Event) Affects() []Kind {
	switch {
	case e.Op == OpResync:
		return Kinds
	case e.Kind == KindClasses && e.Op == OpDelete:
		return []Kind{KindClasses, KindStudents}
	case e.Kind == KindStudents && e.Op == OpDelete:
		return []Kind{KindStudents, KindPayments}
	default:
		return []Kind{e.Kind}
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber delivers events until ctx is done, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
