package record

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Record is a payload written on behalf of a ledger identity once the ledger
// grants write access.
type Record struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}
