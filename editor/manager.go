package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is one open editing surface: a document plus its bound image
// handler.
type Session struct {
	ID      string
	Doc     *Document
	Handler *ImageHandler
}

// Manager keeps editing sessions in memory, keyed by ID. Sessions live for the
// duration of one create/edit flow and are closed when the form is submitted
// or abandoned.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	uploads   Uploader
	imageBase string
}

func NewManager(uploads Uploader, imageBase string) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		uploads:   uploads,
		imageBase: imageBase,
	}
}

// Open creates a session seeded with the given content.
func (m *Manager) Open(content string) *Session {
	doc := NewDocument(content)
	s := &Session{
		ID:      uuid.New().String(),
		Doc:     doc,
		Handler: NewImageHandler(doc, m.uploads, m.imageBase),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("editor session not found: %s", id)
}

// Close tears the session down. Closing an unknown or already-closed session
// is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Handler.Destroy()
	}
}
