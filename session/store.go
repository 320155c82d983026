package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"portfolio/backend"
	"portfolio/models"
)

// State is what the route guard sees.
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

// API is the slice of the backend client the store needs.
type API interface {
	Login(ctx context.Context, token string) (*backend.LoginResult, error)
	Verify(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

// LoginOutcome is returned by Login. Message is human-readable and set only on
// failure.
type LoginOutcome struct {
	Success bool
	User    *models.User
	Message string
}

// Store owns the authentication state and its persistence. It starts in the
// loading state; CheckStatus resolves it against the backend.
//
// A user record loaded from storage before verification completes is
// display-only: Verified stays false and protected actions must not be
// authorized by it.
type Store struct {
	api   API
	creds *Credentials

	mu            sync.Mutex
	user          *models.User
	authenticated bool
	verified      bool
	loading       bool
	seq           uint64 // bumped per state-changing call; stale completions are dropped
}

func NewStore(api API, creds *Credentials) *Store {
	return &Store{api: api, creds: creds, loading: true}
}

// CheckStatus reconciles local credential state with the backend. The cached
// user record is surfaced immediately for optimistic display, then replaced by
// the server's answer. If the call fails, all local credential state is
// cleared. Safe to call repeatedly; only the newest call decides final state.
func (s *Store) CheckStatus(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.loading = true
	if cached, ok := s.creds.User(); ok {
		s.user = cached
	}
	s.mu.Unlock()

	user, err := s.api.Verify(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if mySeq != s.seq {
		// A newer CheckStatus, Login or Logout already decided the state.
		return
	}
	defer func() { s.loading = false }()

	if err != nil {
		log.Printf("session: verification failed: %v", err)
		if cerr := s.creds.Clear(); cerr != nil {
			log.Printf("session: clearing credentials: %v", cerr)
		}
		s.user = nil
		s.authenticated = false
		s.verified = false
		return
	}

	s.user = user
	s.authenticated = true
	s.verified = true
	if err := s.creds.SaveUser(*user); err != nil {
		log.Printf("session: caching user record: %v", err)
	}
}

// Login exchanges the access token with the backend. On success the credential
// pair is persisted and the in-memory state becomes authenticated. On failure
// nothing persisted changes. If a newer state-changing call was issued while
// the exchange was in flight, the completion is dropped.
func (s *Store) Login(ctx context.Context, token string) LoginOutcome {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	res, err := s.api.Login(ctx, token)
	if err != nil {
		msg := "Login failed"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		log.Printf("session: login error: %v", err)
		return LoginOutcome{Success: false, Message: msg}
	}
	if !res.Success {
		return LoginOutcome{Success: false, Message: orDefault(res.Message, "Login failed")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mySeq != s.seq {
		return LoginOutcome{Success: false, Message: "Login was superseded by a newer request"}
	}
	if err := s.creds.Save(res.Token, res.User); err != nil {
		log.Printf("session: persisting credentials: %v", err)
		return LoginOutcome{Success: false, Message: "Login failed"}
	}
	user := res.User
	s.user = &user
	s.authenticated = true
	s.verified = true
	s.loading = false
	return LoginOutcome{Success: true, User: &user}
}

// Logout tells the backend on a best-effort basis and clears local credential
// state, unless a newer state-changing call was issued while the backend call
// was in flight.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	if err := s.api.Logout(ctx); err != nil {
		log.Printf("session: backend logout failed: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mySeq != s.seq {
		return
	}
	if err := s.creds.Clear(); err != nil {
		log.Printf("session: clearing credentials: %v", err)
	}
	s.user = nil
	s.authenticated = false
	s.verified = false
	s.loading = false
}

// State reports the guard-facing authentication state. Only a verified session
// counts as authenticated; a cached user shown during loading does not.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.loading:
		return StateLoading
	case s.authenticated && s.verified:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated && s.verified
}

// User returns the current user record, which may be a cached, unverified one
// while loading. Display use only.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
