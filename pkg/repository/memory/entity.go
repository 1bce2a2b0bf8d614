package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type entityRepository struct {
	mu       sync.RWMutex
	entities map[types.EntityKey]*model.MonitoredEntity
	order    []types.EntityKey
}

func newEntityRepository() *entityRepository {
	return &entityRepository{
		entities: make(map[types.EntityKey]*model.MonitoredEntity),
	}
}

func copyEntity(e *model.MonitoredEntity) *model.MonitoredEntity {
	c := *e
	if e.LastSyncAt != nil {
		at := *e.LastSyncAt
		c.LastSyncAt = &at
	}
	return &c
}

func (r *entityRepository) Put(ctx context.Context, entity *model.MonitoredEntity) error {
	if err := entity.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[entity.EntityKey]; !exists {
		r.order = append(r.order, entity.EntityKey)
	}
	r.entities[entity.EntityKey] = copyEntity(entity)
	return nil
}

func (r *entityRepository) EnsureForSync(ctx context.Context, entityType types.EntityType, gid types.GID, displayName string) error {
	key := types.NewEntityKey(entityType, gid)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[key]; exists {
		return nil
	}

	r.entities[key] = &model.MonitoredEntity{
		EntityKey:   key,
		EntityType:  entityType,
		EntityGID:   gid,
		DisplayName: displayName,
		SyncEnabled: false,
	}
	r.order = append(r.order, key)
	return nil
}

func (r *entityRepository) Get(ctx context.Context, key types.EntityKey) (*model.MonitoredEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[key]
	if !exists {
		return nil, nil
	}
	return copyEntity(entity), nil
}

func (r *entityRepository) Remove(ctx context.Context, key types.EntityKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[key]; !exists {
		return false, nil
	}
	delete(r.entities, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *entityRepository) List(ctx context.Context) ([]*model.MonitoredEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]*model.MonitoredEntity, 0, len(r.order))
	for _, key := range r.order {
		entity := r.entities[key]
		if !entity.SyncEnabled {
			continue
		}
		entities = append(entities, copyEntity(entity))
	}
	return entities, nil
}
