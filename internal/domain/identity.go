package domain

// SessionIdentity is who a cart request acts for. SessionToken is always
// provisioned upstream; UserID is set only for authenticated sessions.
type SessionIdentity struct {
	SessionToken string
	UserID       string
}

type LookupKind string

const (
	LookupByUser    LookupKind = "user"
	LookupBySession LookupKind = "session"
)

// LookupKey names the single field a cart is looked up by.
type LookupKey struct {
	Kind  LookupKind
	Value string
}

func (k LookupKey) String() string {
	return string(k.Kind) + ":" + k.Value
}
