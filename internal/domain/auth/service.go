package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/pkg/jwt"
)

// StoreOpener opens the state store of a device
type StoreOpener interface {
	Get(ctx context.Context, deviceID string) (*state.Store, error)
}

// Service issues device identities and runs the profile session on a device's store
type Service struct {
	jwtService *jwt.Service
	stores     StoreOpener
}

// NewService creates auth service
func NewService(jwtService *jwt.Service, stores StoreOpener) *Service {
	return &Service{jwtService: jwtService, stores: stores}
}

// IssueDevice creates a device id, seeds its state and signs a token for it
func (s *Service) IssueDevice(ctx context.Context) (*DeviceResponse, error) {
	deviceID := uuid.New()

	if _, err := s.stores.Get(ctx, deviceID.String()); err != nil {
		return nil, fmt.Errorf("%w: open state: %v", ErrDeviceIssue, err)
	}

	token, expiresAt, err := s.jwtService.GenerateDeviceToken(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", ErrDeviceIssue, err)
	}

	log.Info().Str("device_id", deviceID.String()).Time("expires_at", expiresAt).Msg("device issued")
	return &DeviceResponse{DeviceID: deviceID, Token: token, ExpiresAt: expiresAt}, nil
}

// Login starts a fresh profile on the store. Any existing profile is replaced.
func (s *Service) Login(ctx context.Context, store *state.Store, req *LoginRequest) UserResponse {
	u := store.Login(ctx, normalizeEmail(req.Email), normalizeName(req.Name))
	return UserResponseFromEntity(u)
}

// Logout clears the profile on the store
func (s *Service) Logout(ctx context.Context, store *state.Store) {
	store.Logout(ctx)
}

// Me returns the logged-in profile, if any
func (s *Service) Me(store *state.Store) (UserResponse, bool) {
	u, ok := store.User()
	if !ok {
		return UserResponse{}, false
	}
	return UserResponseFromEntity(u), true
}
