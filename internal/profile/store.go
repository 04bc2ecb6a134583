package profile

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"chat-orchestrator/internal/domain"
)

// source abstracts the loader so tests can count load admissions.
type source interface {
	Load(ctx context.Context) (map[string]domain.ProfileDefinition, string, error)
}

// Store caches the loaded profile set and answers lookup and listing
// requests. The first caller triggers the load; concurrent callers wait for
// that one load instead of stampeding the blob store.
//
// A failed load is not cached. Callers get a synthetic placeholder profile
// so the UI stays up, and the next request retries the load.
type Store struct {
	src    source
	logger *slog.Logger

	mu       sync.Mutex
	profiles map[string]domain.ProfileDefinition
	loadedAt time.Time
	inflight chan struct{}
}

func NewStore(src source, logger *slog.Logger) *Store {
	return &Store{src: src, logger: logger}
}

// get returns the cached profile map, loading it on first use. Exactly one
// goroutine performs the load; the rest block until it finishes.
func (s *Store) get(ctx context.Context) map[string]domain.ProfileDefinition {
	for {
		s.mu.Lock()
		if s.profiles != nil {
			profiles := s.profiles
			s.mu.Unlock()
			return profiles
		}
		if s.inflight == nil {
			done := make(chan struct{})
			s.inflight = done
			s.mu.Unlock()

			profiles, src, err := s.src.Load(ctx)

			s.mu.Lock()
			s.inflight = nil
			if err == nil {
				s.profiles = profiles
				s.loadedAt = time.Now()
			}
			s.mu.Unlock()
			close(done)

			if err != nil {
				s.logger.Error("profile load failed", "source", src, "error", err)
				return syntheticErrorProfiles()
			}
			s.logger.Info("profiles loaded", "source", src, "count", len(profiles))
			return profiles
		}
		done := s.inflight
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return syntheticErrorProfiles()
		}
	}
}

// Reload discards the cached set so the next request loads fresh.
func (s *Store) Reload() {
	s.mu.Lock()
	s.profiles = nil
	s.mu.Unlock()
}

// LoadedAt reports when the cached set was loaded; zero when not yet loaded.
func (s *Store) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

// Profile resolves a profile by id or name and checks the caller's access.
func (s *Store) Profile(ctx context.Context, selector string, user domain.UserContext) (domain.ProfileDefinition, error) {
	profiles := s.get(ctx)

	p, ok := profiles[selector]
	if !ok {
		return domain.ProfileDefinition{}, domain.ErrProfileNotFound
	}
	if !p.VisibleTo(user.Groups) {
		return domain.ProfileDefinition{}, domain.ErrProfileAccessDenied
	}
	return p, nil
}

// ListVisible returns the profiles the caller may use, sorted by name.
func (s *Store) ListVisible(ctx context.Context, user domain.UserContext) []domain.ProfileDefinition {
	profiles := s.get(ctx)

	seen := make(map[string]struct{}, len(profiles))
	visible := make([]domain.ProfileDefinition, 0, len(profiles))
	for _, p := range profiles {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if p.VisibleTo(user.Groups) {
			visible = append(visible, p)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].Name < visible[j].Name })
	return visible
}

// syntheticErrorProfiles is the fail-open stand-in served while the real
// profile set cannot be loaded.
func syntheticErrorProfiles() map[string]domain.ProfileDefinition {
	p := domain.ProfileDefinition{
		ID:            "unavailable",
		Name:          "Profiles Unavailable",
		Approach:      domain.ApproachChat,
		SecurityModel: domain.SecurityModelNone,
	}
	return map[string]domain.ProfileDefinition{
		p.ID:   p,
		p.Name: p,
	}
}
