package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/adspredia/adspredia-api/internal/domain/state"
)

// LoginRequest for POST /auth/login
type LoginRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"required,min=1,max=100"`
}

// DeviceResponse returned by POST /devices
type DeviceResponse struct {
	DeviceID  uuid.UUID `json:"device_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse represents the logged-in user in API responses
type UserResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Balance          int64     `json:"balance"`
	TotalEarnings    int64     `json:"total_earnings"`
	CompletedTasks   int       `json:"completed_tasks"`
	CompletedTaskIDs []string  `json:"completed_task_ids"`
	JoinedAt         time.Time `json:"joined_at"`
}

func UserResponseFromEntity(u state.User) UserResponse {
	ids := u.CompletedTaskIDs
	if ids == nil {
		ids = []string{}
	}
	return UserResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Balance:          u.Balance,
		TotalEarnings:    u.TotalEarnings,
		CompletedTasks:   u.CompletedTasks,
		CompletedTaskIDs: ids,
		JoinedAt:         u.JoinedAt,
	}
}
