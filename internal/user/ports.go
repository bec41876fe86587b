package user

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=user

// Repository defines the contract for reading users.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
}
