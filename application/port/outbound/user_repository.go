package outbound

import (
	"context"
	"errors"

	"github.com/jobtrack/jobtrack/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the external user-store collaborator. Account
// persistence is owned elsewhere; the auth subsystem only reads and
// writes through this surface.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *entity.User) (*entity.User, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	Delete(ctx context.Context, id int64) error
}
