package service

// Event types pushed to admin consoles after a committed change.
const (
	EventRoleCreated      = "role.created"
	EventRoleUpdated      = "role.updated"
	EventRoleDeleted      = "role.deleted"
	EventUserRolesChanged = "user.roles_changed"
)

// Event tells open admin consoles which list to reload. It carries no
// claims and does not affect sessions that were already issued.
type Event struct {
	Type     string `json:"type"`
	EntityID string `json:"entity_id"`
	Name     string `json:"name,omitempty"`
}

// Notifier receives registry change events.
type Notifier interface {
	Notify(event Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
