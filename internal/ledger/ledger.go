// Package ledger resolves a per-user Fabric identity, evaluates userman
// chaincode transactions through a gateway, and applies the permission policy
// that guards the record table.
package ledger

import (
	"encoding/json"
	"errors"

	"github.com/geocoder89/ledgerauth/internal/domain/record"
)

// Logical functions accepted by Service.Query.
const (
	FcnGetUser = "GetUser"
	FcnRead    = "Read"
	FcnWrite   = "Write"
)

const (
	MsgWriteOK = "Write data successfuly"
	MsgReadOK  = "Read data successfuly :"
	MsgDenied  = "Permission Denied"
)

var (
	// ErrIdentityPending means the user had no wallet identity. An enrollment
	// request was queued; the call must be retried once it completes.
	ErrIdentityPending = errors.New("ledger: identity not enrolled yet, enrollment requested")
	ErrUnknownFunction = errors.New("ledger: unknown function")
	ErrMissingArgs     = errors.New("ledger: args[0] is required")
)

type Request struct {
	Channel   string
	Chaincode string
	Args      []string
	Function  string
	Username  string
	Org       string
	// Data is written to the record table by Write.
	Data string
}

// Result is the structured outcome of a successful Query. Denials are
// successful results with Allowed=false.
type Result struct {
	Function   string          `json:"fcn"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Permission Permission      `json:"permission,omitempty"`
	Allowed    bool            `json:"allowed"`
	Message    string          `json:"message,omitempty"`
	Data       string          `json:"data,omitempty"`
	Record     *record.Record  `json:"record,omitempty"`
}

// Permission is the access code stored on a ledger user.
type Permission string

const (
	PermissionFull      Permission = "11"
	PermissionWriteOnly Permission = "10"
)

// CanRead and CanWrite default to deny for every unknown code.
func (p Permission) CanRead() bool {
	return p == PermissionFull
}

func (p Permission) CanWrite() bool {
	return p == PermissionFull || p == PermissionWriteOnly
}
