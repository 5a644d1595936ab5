package workflows

import "github.com/chazuruo/flowdeck/internal/pubsub"

// EventType names a workflow lifecycle event.
type EventType string

const (
	// EventChange fires when the open stack or the active workflow changes.
	EventChange EventType = "change"
	// EventFavorite fires after a favorite flag flips.
	EventFavorite EventType = "favorite"
	// EventRename fires after a workflow's path changes.
	EventRename EventType = "rename"
	// EventSave fires after an open workflow is written to its own path.
	EventSave EventType = "save"
	// EventDelete fires after a workflow is removed from the store.
	EventDelete EventType = "delete"
)

// Event is published on the manager's broker. Workflow is nil for EventChange.
type Event struct {
	Type     EventType
	Workflow *Workflow
}

func (t EventType) brokerType() pubsub.EventType {
	switch t {
	case EventDelete:
		return pubsub.DeletedEvent
	default:
		return pubsub.UpdatedEvent
	}
}
