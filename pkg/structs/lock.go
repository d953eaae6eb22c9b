package structs

// Lock is an exclusive claim on an entity or a single entity field.
// Field is empty for a whole-record lock.
type Lock struct {
	EntityType string
	EntityID   int64
	Field      string
	OwnerID    string
	OwnerName  string
	LockID     string
}

// Key returns the map key for this lock's (entityType, entityId, field) triple.
func (l *Lock) Key() string {
	return LockKey(l.EntityType, l.EntityID, l.Field)
}

// LockKey builds the lock map key. A whole-record lock and a field lock on
// the same entity are distinct keys.
func LockKey(entityType string, entityID int64, field string) string {
	key := EntityKey(entityType, entityID)
	if field != "" {
		key += ":" + field
	}
	return key
}
