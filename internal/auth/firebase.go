package auth

import (
	"context"
	"fmt"

	"solis/internal/logger"
	"solis/internal/model"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
)

// FirebaseClient is the subset of *auth.Client the hosted backend uses.
type FirebaseClient interface {
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// ProfileStore writes profile records for the hosted backend.
type ProfileStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Firebase keeps identity records in Firebase Auth. The Firebase UID is the
// profile id, so tokens resolve to profiles without a mapping table.
type Firebase struct {
	client   FirebaseClient
	profiles ProfileStore
	log      *logger.Logger
}

func NewFirebase(client FirebaseClient, profiles ProfileStore, log *logger.Logger) *Firebase {
	return &Firebase{client: client, profiles: profiles, log: log.Named("identity.firebase")}
}

func (f *Firebase) Register(ctx context.Context, user *model.User, password string) error {
	// Profiles may outlive their Firebase user, so the email is checked here too.
	existing, err := f.profiles.FindByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}
	if existing != nil {
		return ErrEmailTaken
	}

	params := (&fbauth.UserToCreate{}).
		UID(user.ID.String()).
		Email(user.Email).
		Password(password).
		DisplayName(user.Name)

	if _, err := f.client.CreateUser(ctx, params); err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create identity: %w", err)
	}

	if err := f.profiles.Create(ctx, user); err != nil {
		if delErr := f.client.DeleteUser(ctx, user.ID.String()); delErr != nil {
			f.log.Error().Err(delErr).Str("user_id", user.ID.String()).Msg("orphaned identity record after profile insert failure")
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Authenticate is not available: clients sign in with the Firebase SDK and
// present the resulting ID token.
func (f *Firebase) Authenticate(context.Context, string, string) (uuid.UUID, error) {
	return uuid.Nil, ErrUnsupported
}

func (f *Firebase) Remove(ctx context.Context, id uuid.UUID) error {
	if err := f.client.DeleteUser(ctx, id.String()); err != nil && !fbauth.IsUserNotFound(err) {
		return fmt.Errorf("delete identity: %w", err)
	}
	return f.profiles.Delete(ctx, id)
}

func (f *Firebase) Verify(ctx context.Context, raw string) (*Identity, error) {
	token, err := f.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, ErrInvalidToken
	}

	id := &Identity{Subject: token.UID}
	id.Email, _ = token.Claims["email"].(string)
	id.Name, _ = token.Claims["name"].(string)
	if token.AuthTime != 0 {
		id.SessionID = fmt.Sprintf("%s:%d", token.UID, token.AuthTime)
	} else {
		id.SessionID = token.UID
	}
	return id, nil
}
