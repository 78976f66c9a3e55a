// Package session holds the authenticated flag and the transitions that move
// it. The flag is derived from the stored credential's presence, never from
// its validity; the server is the only judge of that.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/finance"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Cause names what triggered a transition.
type Cause string

const (
	CauseRehydrate Cause = "rehydrate"
	CauseLogin     Cause = "login"
	CauseRegister  Cause = "register"
	CauseLogout    Cause = "logout"
	CauseExpired   Cause = "expired"
)

type Transition struct {
	From  State
	To    State
	Cause Cause
	At    time.Time
}

// Authenticator is the part of the finance bindings the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, req finance.RegisterRequest) (*finance.User, error)
}

type Service struct {
	auth   Authenticator
	store  storage.TokenStore
	logger *slog.Logger

	// opMu serialises login, register and logout against each other.
	opMu sync.Mutex
	// credMu pairs each credential write with its state flip, so the flag
	// and the store never disagree once either has been observed together.
	credMu sync.Mutex

	mu     sync.RWMutex
	state  State
	subs   map[int]func(Transition)
	nextID int
}

// New builds the service and rehydrates it from store.
func New(ctx context.Context, auth Authenticator, store storage.TokenStore) (*Service, error) {
	s := &Service{
		auth:   auth,
		store:  store,
		logger: slog.Default().With(log.FieldComponent, log.ComponentSession),
		subs:   make(map[int]func(Transition)),
	}
	if err := s.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) Authenticated() bool {
	return s.State() == Authenticated
}

// Rehydrate reads the store once. Any non-empty credential counts.
func (s *Service) Rehydrate(ctx context.Context) error {
	token, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate session: %w", err)
	}
	to := Unauthenticated
	if token != "" {
		to = Authenticated
	}
	s.setState(to, CauseRehydrate)
	return nil
}

// Login exchanges credentials for a token, stores it, then flips the flag.
// On failure the state is left as it was.
func (s *Service) Login(ctx context.Context, email, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.login(ctx, email, password, CauseLogin)
}

func (s *Service) login(ctx context.Context, email, password string, cause Cause) error {
	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.InfoContext(ctx, "Login rejected", log.FieldOperation, log.OpLogin, "error", err)
		return err
	}
	s.credMu.Lock()
	defer s.credMu.Unlock()
	if err := s.store.Set(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.setState(Authenticated, cause)
	return nil
}

// Register creates the account and logs in with the same credentials. When
// the account is created but the login fails, nothing is rolled back.
func (s *Service) Register(ctx context.Context, email, password, fullName string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.auth.Register(ctx, finance.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	}); err != nil {
		s.logger.InfoContext(ctx, "Registration rejected", log.FieldOperation, log.OpRegister, "error", err)
		return err
	}
	return s.login(ctx, email, password, CauseRegister)
}

// Logout clears the credential and flips the flag. It never fails; a store
// error is only logged.
func (s *Service) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.credMu.Lock()
	defer s.credMu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Clearing token on logout failed", log.FieldOperation, log.OpLogout, "error", err)
	}
	s.setState(Unauthenticated, CauseLogout)
}

// HandleUnauthorized is registered with the API client, which has already
// cleared the credential by the time it runs. A 401 for a request that still
// carried an older token can land after a newer login; the stored credential
// decides, so such a login is not undone.
func (s *Service) HandleUnauthorized() {
	s.credMu.Lock()
	defer s.credMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	token, err := s.store.Get(ctx)
	if err == nil && token != "" {
		s.logger.Info("Ignoring stale 401, a newer credential is stored")
		return
	}
	s.setState(Unauthenticated, CauseExpired)
}

// Subscribe registers fn for every state change. Call the returned func to
// stop receiving them.
func (s *Service) Subscribe(fn func(Transition)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) setState(to State, cause Cause) {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return
	}
	s.state = to
	fns := make([]func(Transition), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	tr := Transition{From: from, To: to, Cause: cause, At: time.Now()}
	s.logger.Info("Session state changed",
		log.FieldSessionFrom, from.String(),
		log.FieldSessionTo, to.String(),
		log.FieldCause, string(cause))

	for _, fn := range fns {
		fn(tr)
	}
}
