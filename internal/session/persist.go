package session

import (
	"context"
	"sync"

	"league-console/internal/model"
)

// Persister is the durable copy of sessions, keyed by session id. Load
// returns model.ErrSessionNotFound for unknown ids.
type Persister interface {
	Load(ctx context.Context, id string) (model.Session, error)
	Save(ctx context.Context, id string, session model.Session) error
	Delete(ctx context.Context, id string) error
}

type MemoryPersister struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{sessions: map[string]model.Session{}}
}

func (p *MemoryPersister) Load(_ context.Context, id string) (model.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored, ok := p.sessions[id]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}

	return stored.Clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, id string, session model.Session) error {
	p.mu.Lock()
	p.sessions[id] = session.Clone()
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
