package structs

// Message types pushed by clients.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypeLock           = "lock"
	TypeUnlock         = "unlock"
	TypeUpdate         = "update"
	TypeFieldOperation = "field_operation"
	TypeCursor         = "cursor"
	TypePing           = "ping"
)

// Message types pushed by the server.
const (
	TypeJoined       = "joined"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeLockAcquired = "lock_acquired"
	TypeLockFailed   = "lock_failed"
	TypeLockReleased = "lock_released"
	TypePong         = "pong"
)

// Participant identifies one user inside a room.
type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// Position is a cursor selection range inside a field.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Message is a single wire frame, discriminated by Type. Fields that do not
// apply to a given type are omitted from the JSON encoding.
type Message struct {
	Type       string         `json:"type"`
	EntityType string         `json:"entityType,omitempty"`
	EntityID   int64          `json:"entityId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	UserName   string         `json:"userName,omitempty"`
	Users      []Participant  `json:"users,omitempty"`
	Field      string         `json:"field,omitempty"`
	Value      any            `json:"value,omitempty"`
	Operation  string         `json:"operation,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Position   *Position      `json:"position,omitempty"`
	LockID     string         `json:"lockId,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	LockedBy   string         `json:"lockedBy,omitempty"`
	Version    int64          `json:"version,omitempty"`
	Timestamp  int64          `json:"timestamp,omitempty"`
}
