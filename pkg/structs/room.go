package structs

import "strconv"

// Room is the set of sessions currently viewing or editing one entity.
type Room struct {
	EntityType string
	EntityID   int64
	Clients    []*Client
}

// Key returns the map key for an (entityType, entityId) pair.
func (r *Room) Key() string {
	return EntityKey(r.EntityType, r.EntityID)
}

// Participants returns the participant list in join order.
func (r *Room) Participants() []Participant {
	users := make([]Participant, 0, len(r.Clients))
	for _, c := range r.Clients {
		users = append(users, c.Identity())
	}
	return users
}

// EntityKey builds the room key for an (entityType, entityId) pair.
func EntityKey(entityType string, entityID int64) string {
	return entityType + ":" + strconv.FormatInt(entityID, 10)
}
