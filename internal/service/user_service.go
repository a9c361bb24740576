package service

import (
	"context"

	"github.com/billo/billo/internal/middleware"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/storage"
)

// UserService mirrors identity-provider profiles and stores preferences.
type UserService struct {
	store storage.Store
}

func NewUserService(store storage.Store) *UserService {
	return &UserService{store: store}
}

// SyncMe upserts the caller's profile from the token claims.
func (s *UserService) SyncMe(ctx context.Context) (*models.User, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(userID, "", middleware.GetEmail(ctx), "")
	if claims := middleware.GetClaims(ctx); claims != nil {
		user.Name = claims.Name
		user.ImageURL = claims.ImageURL
	}
	if user.Name == "" {
		user.Name = user.Email
	}

	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, internalError("UpsertUser", err)
	}

	stored, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError("GetUser", "user", err)
	}
	return stored, nil
}

// PreferencesInput holds optional updates; nil leaves a flag unchanged.
type PreferencesInput struct {
	SettlementCreated *bool
	PaymentConfirmed  *bool
	PaymentUnmarked   *bool
}

// UpdatePreferences changes the caller's notification preferences.
// The caller must have synced their profile first.
func (s *UserService) UpdatePreferences(ctx context.Context, in PreferencesInput) (*models.User, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError("GetUser", "user", err)
	}

	prefs := user.Preferences
	if in.SettlementCreated != nil {
		prefs.SettlementCreated = *in.SettlementCreated
	}
	if in.PaymentConfirmed != nil {
		prefs.PaymentConfirmed = *in.PaymentConfirmed
	}
	if in.PaymentUnmarked != nil {
		prefs.PaymentUnmarked = *in.PaymentUnmarked
	}

	if err := s.store.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, storeError("UpdatePreferences", "user", err)
	}
	user.Preferences = prefs
	return user, nil
}
