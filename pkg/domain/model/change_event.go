package model

import "github.com/secmon-lab/taskmirror/pkg/domain/types"

// ChangeEvent is a single entry from the remote change-event stream.
// Events are ephemeral: they are consumed entirely within one incremental
// sync attempt and never persisted.
type ChangeEvent struct {
	ResourceKind types.ResourceKind
	ResourceGID  types.GID
	Action       types.EventAction
	ParentKind   types.ResourceKind
	ParentGID    types.GID
}

// EventBatch is the result of one change-event read: the events since the
// supplied cursor and the server's next cursor. The new cursor must only be
// persisted after the corresponding changes have been applied.
type EventBatch struct {
	NewCursor string
	Events    []ChangeEvent
}
