package usecase

import (
	"context"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// incrementalTaskLimit is the changed-task count beyond which per-task
// refetches would exceed the cost of one bulk fetch
const incrementalTaskLimit = 50

// changeSet is the classification of one event batch: the set of tasks that
// need a refetch plus flags for metadata-only refreshes
type changeSet struct {
	tasks           map[types.GID]struct{}
	sectionsChanged bool
	projectChanged  bool
	statusChanged   bool
}

func newChangeSet() *changeSet {
	return &changeSet{tasks: make(map[types.GID]struct{})}
}

// empty reports whether the batch requires no work at all
func (cs *changeSet) empty() bool {
	return len(cs.tasks) == 0 &&
		!cs.sectionsChanged && !cs.projectChanged && !cs.statusChanged
}

// overLimit reports whether incremental sync is no longer worthwhile
func (cs *changeSet) overLimit() bool {
	return len(cs.tasks) > incrementalTaskLimit
}

// classifyEvents folds a change-event batch into a changeSet. Task removal
// events are deliberately not handled here: deletions are reconciled by the
// next full sync rather than applied eagerly, since event lag could flag
// rows as gone that are not.
func classifyEvents(ctx context.Context, events []model.ChangeEvent) *changeSet {
	cs := newChangeSet()

	for _, ev := range events {
		switch ev.ResourceKind {
		case types.ResourceKindTask:
			switch ev.Action {
			case types.EventActionChanged, types.EventActionAdded, types.EventActionUndeleted:
				cs.tasks[ev.ResourceGID] = struct{}{}
			case types.EventActionRemoved, types.EventActionDeleted:
				// reconciled by the next full sync
			default:
				logUnhandledEvent(ctx, ev)
			}

		case types.ResourceKindStory:
			switch ev.Action {
			case types.EventActionChanged, types.EventActionAdded:
				// A comment change forces a refetch of its parent task,
				// which re-derives the comments
				if ev.ParentKind == types.ResourceKindTask && ev.ParentGID != "" {
					cs.tasks[ev.ParentGID] = struct{}{}
				}
			default:
				logUnhandledEvent(ctx, ev)
			}

		case types.ResourceKindSection:
			cs.sectionsChanged = true

		case types.ResourceKindProject:
			if ev.Action == types.EventActionChanged {
				cs.projectChanged = true
			} else {
				logUnhandledEvent(ctx, ev)
			}

		case types.ResourceKindStatusUpdate:
			switch ev.Action {
			case types.EventActionChanged, types.EventActionAdded:
				cs.statusChanged = true
			default:
				logUnhandledEvent(ctx, ev)
			}

		default:
			logUnhandledEvent(ctx, ev)
		}
	}
	return cs
}

func logUnhandledEvent(ctx context.Context, ev model.ChangeEvent) {
	logging.From(ctx).Debug("ignoring unhandled change event",
		"resource_type", ev.ResourceKind.String(),
		"action", ev.Action.String(),
		"resource_gid", ev.ResourceGID.String())
}
