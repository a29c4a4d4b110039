package service

import (
	"context"
	"net/mail"
	"strings"

	"solis/internal/auth"
	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/permission"
	"solis/internal/projection"
	"solis/internal/repository"
	"solis/internal/sanitize"

	"github.com/google/uuid"
)

// IdentityBackend creates and removes the identity record paired with a profile.
type IdentityBackend interface {
	Register(ctx context.Context, user *model.User, password string) error
	Authenticate(ctx context.Context, email, password string) (uuid.UUID, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, department string, activeOnly bool) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SetRole(ctx context.Context, id uuid.UUID, role string, perms model.Permissions) error
	SetPermissions(ctx context.Context, id uuid.UUID, perms model.Permissions) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ProfileCache is told when a profile changes. *session.Provider implements it.
type ProfileCache interface {
	Invalidate(subject string)
}

type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Department string
	Role       string
}

type ProfileInput struct {
	Name       *string
	Avatar     *string
	Department *string
}

const minPasswordLength = 6

type UserService struct {
	identity IdentityBackend
	users    UserStore
	cache    ProfileCache
	log      *logger.Logger
}

func NewUserService(identity IdentityBackend, users UserStore, cache ProfileCache, log *logger.Logger) *UserService {
	return &UserService{identity: identity, users: users, cache: cache, log: log.Named("users")}
}

// Register creates the identity record and the profile together. Permissions
// are seeded from the role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, invalid("email", "correo inválido")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "la contraseña debe tener al menos 6 caracteres")
	}
	name := sanitize.Text(in.Name)
	if name == "" {
		return nil, invalid("name", "el nombre es obligatorio")
	}
	dept := in.Department
	if dept == "" {
		dept = model.DepartmentGeneral
	}
	if !permission.ValidDepartment(dept) {
		return nil, invalid("department", "departamento desconocido")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = model.RoleOperativo
	}
	if !permission.ValidRole(role) {
		return nil, invalid("role", "rol desconocido")
	}

	user := &model.User{
		ID:          uuid.New(),
		Email:       email,
		Name:        name,
		Avatar:      model.Initials(name),
		Department:  dept,
		Role:        role,
		IsActive:    true,
		Permissions: permission.Derive(role),
	}
	if err := s.identity.Register(ctx, user, in.Password); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", role).Msg("user registered")
	return user, nil
}

// Login checks credentials with the identity backend and returns the profile.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	id, err := s.identity.Authenticate(ctx, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, department string, activeOnly bool) ([]model.User, error) {
	return s.users.List(ctx, department, activeOnly)
}

func (s *UserService) OrgChart(ctx context.Context) ([]projection.Department, error) {
	users, err := s.users.List(ctx, "", true)
	if err != nil {
		return nil, err
	}
	return projection.OrgChart(users), nil
}

// UpdateProfile edits the actor's own name, avatar and department. Role and
// permissions are never part of this write.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.User, in ProfileInput) (*model.User, error) {
	fields := make(map[string]interface{})
	if in.Name != nil {
		name := sanitize.Text(*in.Name)
		if name == "" {
			return nil, invalid("name", "el nombre es obligatorio")
		}
		fields["name"] = name
	}
	if in.Avatar != nil {
		avatar := strings.ToUpper(sanitize.Text(*in.Avatar))
		if n := len([]rune(avatar)); n == 0 || n > 2 {
			return nil, invalid("avatar", "el avatar son una o dos iniciales")
		}
		fields["avatar"] = avatar
	}
	if in.Department != nil {
		if !permission.ValidDepartment(*in.Department) {
			return nil, invalid("department", "departamento desconocido")
		}
		fields["department"] = *in.Department
	}
	if len(fields) == 0 {
		return nil, invalid("body", "no hay campos para actualizar")
	}

	if err := s.users.UpdateProfile(ctx, actor.ID, fields); err != nil {
		return nil, err
	}
	s.cache.Invalidate(actor.ID.String())
	return s.Get(ctx, actor.ID)
}

// ChangeRole stores a new role and reseeds permissions from it.
func (s *UserService) ChangeRole(ctx context.Context, actor *model.User, id uuid.UUID, role string) (*model.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !permission.ValidRole(role) {
		return nil, invalid("role", "rol desconocido")
	}
	if !allowed(actor, permission.ManageUsers) {
		return nil, ErrForbidden
	}
	if err := s.users.SetRole(ctx, id, role, permission.Derive(role)); err != nil {
		return nil, err
	}
	s.cache.Invalidate(id.String())
	s.log.Info().Str("user_id", id.String()).Str("role", role).Str("actor", actor.ID.String()).Msg("role changed")
	return s.Get(ctx, id)
}

// SetPermissions overrides the stored capability set regardless of role.
func (s *UserService) SetPermissions(ctx context.Context, actor *model.User, id uuid.UUID, perms model.Permissions) (*model.User, error) {
	if !allowed(actor, permission.ManageUsers) {
		return nil, ErrForbidden
	}
	if err := s.users.SetPermissions(ctx, id, perms); err != nil {
		return nil, err
	}
	s.cache.Invalidate(id.String())
	s.log.Info().Str("user_id", id.String()).Str("actor", actor.ID.String()).Msg("permissions overridden")
	return s.Get(ctx, id)
}

func (s *UserService) SetActive(ctx context.Context, actor *model.User, id uuid.UUID, active bool) (*model.User, error) {
	if !allowed(actor, permission.ManageUsers) {
		return nil, ErrForbidden
	}
	if id == actor.ID && !active {
		return nil, invalid("isActive", "no puedes desactivar tu propia cuenta")
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.cache.Invalidate(id.String())
	return s.Get(ctx, id)
}

// Delete removes the profile and its paired identity record.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if !allowed(actor, permission.ManageUsers) {
		return ErrForbidden
	}
	if id == actor.ID {
		return invalid("id", "no puedes eliminar tu propia cuenta")
	}
	if err := s.identity.Remove(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(id.String())
	s.log.Info().Str("user_id", id.String()).Str("actor", actor.ID.String()).Msg("user deleted")
	return nil
}
