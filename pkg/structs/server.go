package structs

import (
	"regexp"
	"sync"
)

// ActivityRecorder receives audit rows for room and lock activity.
// Implementations must be fire-and-forget; handlers never wait on them.
type ActivityRecorder interface {
	Record(event, entityType string, entityID int64, userID string)
}

// Server holds the shared collaboration state. The server is the sole
// arbiter of lock grant/deny; clients only mirror what it decides.
type Server struct {
	AuthorizedOriginsStorage []*regexp.Regexp
	Lock                     *sync.RWMutex
	Rooms                    map[string]*Room
	Locks                    map[string]*Lock
	Sessions                 map[string]*Client
	Activity                 ActivityRecorder
}
