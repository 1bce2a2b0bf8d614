package types

// ResourceKind is the resource type reported by a remote change event
type ResourceKind string

const (
	ResourceKindTask         ResourceKind = "task"
	ResourceKindStory        ResourceKind = "story"
	ResourceKindSection      ResourceKind = "section"
	ResourceKindProject      ResourceKind = "project"
	ResourceKindStatusUpdate ResourceKind = "status_update"
)

// String returns the string representation of the resource kind
func (k ResourceKind) String() string {
	return string(k)
}

// EventAction is the action reported by a remote change event
type EventAction string

const (
	EventActionAdded     EventAction = "added"
	EventActionChanged   EventAction = "changed"
	EventActionRemoved   EventAction = "removed"
	EventActionDeleted   EventAction = "deleted"
	EventActionUndeleted EventAction = "undeleted"
)

// String returns the string representation of the event action
func (a EventAction) String() string {
	return string(a)
}
