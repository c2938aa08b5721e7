package nsas

import (
	"time"

	"github.com/google/uuid"
)

// Trace identifies one Lookup call in the debug log, so the fan-out a single
// request causes (NS fetch, per-nameserver address queries, callback
// delivery) can be followed across goroutines.
type Trace struct {
	Id    uuid.UUID
	Start time.Time
}

func NewTrace() *Trace {
	id, _ := uuid.NewV7()
	return &Trace{
		Id:    id,
		Start: time.Now(),
	}
}

func (t *Trace) ID() string {
	return t.Id.String()
}

func (t *Trace) ShortID() string {
	// Return only the last 7 characters. In the vast majority of cases this is unique enough.
	return t.ID()[29:]
}
