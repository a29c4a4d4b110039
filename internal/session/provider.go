package session

import (
	"context"
	"sync"
	"time"

	"solis/internal/auth"
	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/permission"

	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
)

const DefaultAvatar = "U"

// ProfileStore is the profile lookup the provider resolves identities against.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Provider owns every live session and the resolved profile cache.
type Provider struct {
	profiles ProfileStore
	cache    *ccache.Cache[*model.User]
	ttl      time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	stamps   sync.WaitGroup
}

func NewProvider(profiles ProfileStore, ttl time.Duration, log *logger.Logger) *Provider {
	return &Provider{
		profiles: profiles,
		cache:    ccache.New(ccache.Configure[*model.User]().MaxSize(1000)),
		ttl:      ttl,
		log:      log.Named("session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Init ties the provider's lifetime to ctx: when ctx ends every session is
// dropped and the cache stopped.
func (p *Provider) Init(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		p.sessions = make(map[string]*Session)
		p.mu.Unlock()
		p.stamps.Wait()
		p.cache.Stop()
	}()
}

// Teardown forgets a session, typically after sign-out.
func (p *Provider) Teardown(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, sessionID)
}

// Current returns the snapshot of a session, Unresolved if it is unknown.
func (p *Provider) Current(sessionID string) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[sessionID]; ok {
		return s.snapshot
	}
	return Snapshot{State: Unresolved, Loading: true}
}

// Handle applies one session-change event.
func (p *Provider) Handle(ctx context.Context, sessionID string, ev Event) Result {
	next := Snapshot{State: Anonymous}
	if ev.Kind != SignedOut && ev.Identity != nil {
		if user, ok := p.Resolve(ctx, *ev.Identity); ok {
			next = Snapshot{State: Authenticated, User: user}
		}
	} else if ev.Identity != nil {
		p.Invalidate(ev.Identity.Subject)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	if !ok {
		s = newSession(sessionID)
		p.sessions[sessionID] = s
	}
	redirect := s.apply(next, ev.View)

	p.log.Debug().
		Str("session", sessionID).
		Str("event", string(ev.Kind)).
		Str("state", string(next.State)).
		Str("redirect", redirect).
		Msg("session event")

	return Result{Snapshot: next, Redirect: redirect}
}

// Anonymous evaluates a request that carries no session at all. Nothing is
// registered; the result is what a fresh session would report.
func (p *Provider) Anonymous(view string) Result {
	s := newSession("")
	next := Snapshot{State: Anonymous}
	return Result{Snapshot: next, Redirect: s.apply(next, view)}
}

// Resolve turns an identity into a complete profile. A failing lookup yields
// the session-only defaults. ok is false when the profile no longer exists,
// which means the account was deleted and the identity must not be honoured.
func (p *Provider) Resolve(ctx context.Context, id auth.Identity) (user *model.User, ok bool) {
	if item := p.cache.Get(id.Subject); item != nil && !item.Expired() {
		return clone(item.Value()), true
	}

	userID, err := id.UserID()
	if err != nil {
		p.log.Warn().Str("subject", id.Subject).Msg("identity subject is not a profile id")
		return nil, false
	}

	profile, err := p.profiles.GetByID(ctx, userID)
	if err != nil {
		p.log.Error().Err(err).Str("user_id", userID.String()).Msg("profile lookup failed, using session defaults")
		return fallback(id, userID), true
	}
	if profile == nil {
		p.log.Warn().Str("user_id", userID.String()).Msg("no profile for identity")
		return nil, false
	}

	user = merge(id, profile)
	p.cache.Set(id.Subject, user, p.ttl)
	p.stampLastSeen(ctx, userID)
	return clone(user), true
}

// Invalidate drops a cached profile after it was changed.
func (p *Provider) Invalidate(subject string) {
	p.cache.Delete(subject)
}

func (p *Provider) stampLastSeen(ctx context.Context, id uuid.UUID) {
	at := p.now()
	p.stamps.Add(1)
	go func() {
		defer p.stamps.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.profiles.TouchLastSeen(ctx, id, at); err != nil {
			p.log.Warn().Err(err).Str("user_id", id.String()).Msg("last seen stamp failed")
		}
	}()
}

func merge(id auth.Identity, profile *model.User) *model.User {
	user := clone(profile)
	if user.Email == "" {
		user.Email = id.Email
	}
	if user.Name == "" {
		user.Name = displayName(id)
	}
	if user.Department == "" {
		user.Department = model.DepartmentGeneral
	}
	if user.Role == "" {
		user.Role = model.RoleOperativo
	}
	if user.Avatar == "" {
		user.Avatar = DefaultAvatar
	}
	return user
}

func fallback(id auth.Identity, userID uuid.UUID) *model.User {
	return &model.User{
		ID:          userID,
		Email:       id.Email,
		Name:        displayName(id),
		Avatar:      DefaultAvatar,
		Department:  model.DepartmentGeneral,
		Role:        model.RoleOperativo,
		IsActive:    true,
		Permissions: permission.Default(),
	}
}

func displayName(id auth.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}
