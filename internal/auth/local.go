package auth

import (
	"context"

	"solis/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore persists credentials and profiles together.
type CredentialStore interface {
	CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error
	FindCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
	DeleteWithCredential(ctx context.Context, id uuid.UUID) error
}

// Local keeps identity records as bcrypt credentials in the profile database.
type Local struct {
	store CredentialStore
	cost  int
}

func NewLocal(store CredentialStore) *Local {
	return &Local{store: store, cost: bcrypt.DefaultCost}
}

func (l *Local) Register(ctx context.Context, user *model.User, password string) error {
	existing, err := l.store.FindCredentialByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return err
	}

	return l.store.CreateWithCredential(ctx, user, &model.Credential{
		UserID:         user.ID,
		Email:          user.Email,
		HashedPassword: string(hash),
	})
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	cred, err := l.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if cred == nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(password)); err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return cred.UserID, nil
}

func (l *Local) Remove(ctx context.Context, id uuid.UUID) error {
	return l.store.DeleteWithCredential(ctx, id)
}
