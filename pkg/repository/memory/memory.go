package memory

import (
	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-memory Repository for tests and ephemeral runs
type Memory struct {
	entity    *entityRepository
	mirror    *mirrorRepository
	syncState *syncStateRepository
	config    *configRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		entity:    newEntityRepository(),
		mirror:    newMirrorRepository(),
		syncState: newSyncStateRepository(),
		config:    newConfigRepository(),
	}
}

func (m *Memory) Entity() interfaces.EntityRepository {
	return m.entity
}

func (m *Memory) Mirror() interfaces.MirrorRepository {
	return m.mirror
}

func (m *Memory) SyncState() interfaces.SyncStateRepository {
	return m.syncState
}

func (m *Memory) Config() interfaces.ConfigRepository {
	return m.config
}

func (m *Memory) Close() error {
	return nil
}
