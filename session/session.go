// Package session holds the process-wide Plex session: the auth token, the
// signed-in user's display name and avatar, and the discovered media
// server's host URL and machine identifier.
//
// Every mutation is written through to a Store before it returns, so a
// restart never loses a parameter that was set. Names outside the five
// recognised parameters are accepted and ignored.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Param names one of the five session parameters
type Param string

const (
	ParamToken     Param = "token"
	ParamName      Param = "name"
	ParamAvatar    Param = "avatar"
	ParamHostURL   Param = "hostUrl"
	ParamMachineID Param = "machineId"
)

// KeyPrefix is prepended to a parameter name to form its store key
const KeyPrefix = "plex-"

// Params lists the recognised parameters in load order
var Params = []Param{ParamToken, ParamName, ParamAvatar, ParamHostURL, ParamMachineID}

// Valid reports whether p is one of the recognised parameters
func (p Param) Valid() bool {
	switch p {
	case ParamToken, ParamName, ParamAvatar, ParamHostURL, ParamMachineID:
		return true
	}
	return false
}

// Key returns the store key for p
func (p Param) Key() string {
	return KeyPrefix + string(p)
}

// Parameters is a point-in-time copy of the session
type Parameters struct {
	Token     string
	Name      string
	Avatar    string
	HostURL   string
	MachineID string
}

// HasToken reports whether a token is present
func (p Parameters) HasToken() bool {
	return p.Token != ""
}

// Session is the in-memory view of the persisted parameters
type Session struct {
	store  Store
	logger zerolog.Logger

	mu     sync.RWMutex
	values map[Param]string
}

// New creates an empty Session backed by store. Call Load to populate it.
func New(store Store, logger zerolog.Logger) *Session {
	return &Session{
		store:  store,
		logger: logger,
		values: make(map[Param]string, len(Params)),
	}
}

// Load reads every parameter from the store. It never fails: keys that are
// missing or unreadable are left absent.
func (s *Session) Load(ctx context.Context) {
	loaded := make(map[Param]string, len(Params))
	for _, p := range Params {
		v, ok, err := s.store.Get(ctx, p.Key())
		if err != nil {
			s.logger.Warn().Err(err).Str("param", string(p)).Msg("Failed to load session parameter")
			continue
		}
		if ok {
			loaded[p] = v
		}
	}

	s.mu.Lock()
	s.values = loaded
	s.mu.Unlock()

	s.logger.Debug().
		Bool("token", loaded[ParamToken] != "").
		Str("name", loaded[ParamName]).
		Str("host_url", loaded[ParamHostURL]).
		Str("machine_id", loaded[ParamMachineID]).
		Msg("Loaded session parameters")
}

// Get returns the value of p and whether it is present
func (s *Session) Get(p Param) (string, bool) {
	if !p.Valid() {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[p]
	return v, ok
}

// Set stores value under p, persisting it before updating memory
func (s *Session) Set(ctx context.Context, p Param, value string) error {
	if !p.Valid() {
		s.logger.Debug().Str("param", string(p)).Msg("Ignoring unknown session parameter")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, p.Key(), value); err != nil {
		return fmt.Errorf("persist session parameter %s: %w", p, err)
	}
	s.values[p] = value
	return nil
}

// Clear removes p from memory and from the store
func (s *Session) Clear(ctx context.Context, p Param) error {
	if !p.Valid() {
		s.logger.Debug().Str("param", string(p)).Msg("Ignoring unknown session parameter")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearLocked(ctx, p)
}

// ResetAll clears every parameter. It keeps going past individual store
// failures and returns them joined.
func (s *Session) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, p := range Params {
		if err := s.clearLocked(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) clearLocked(ctx context.Context, p Param) error {
	if err := s.store.Delete(ctx, p.Key()); err != nil {
		return fmt.Errorf("remove session parameter %s: %w", p, err)
	}
	delete(s.values, p)
	return nil
}

// Snapshot returns a consistent copy of all parameters
func (s *Session) Snapshot() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Parameters{
		Token:     s.values[ParamToken],
		Name:      s.values[ParamName],
		Avatar:    s.values[ParamAvatar],
		HostURL:   s.values[ParamHostURL],
		MachineID: s.values[ParamMachineID],
	}
}
