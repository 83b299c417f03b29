package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAvatarNotFound     = errors.New("avatar not found")
)

// UserStore is implemented by repository.UserRepository and memstore.Users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByToken(ctx context.Context, id primitive.ObjectID, token string) (models.User, error)
	AddToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearTokens(ctx context.Context, id primitive.ObjectID) error
	UpdateProfile(ctx context.Context, user *models.User) error
	SetAvatar(ctx context.Context, id primitive.ObjectID, data []byte) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ConcertStore is implemented by repository.ConcertRepository and memstore.Concerts.
type ConcertStore interface {
	Create(ctx context.Context, concert *models.Concert) error
	List(ctx context.Context, owner primitive.ObjectID, q models.ConcertQuery) ([]models.Concert, error)
	Get(ctx context.Context, id, owner primitive.ObjectID) (models.Concert, error)
	Update(ctx context.Context, concert *models.Concert) error
	Delete(ctx context.Context, id, owner primitive.ObjectID) (models.Concert, error)
	DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error)
}

// LoginLimiter is implemented by cache.LoginThrottle.
type LoginLimiter interface {
	Allowed(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// Notifier is implemented by notify.Dispatcher. Calls must not block.
type Notifier interface {
	Welcome(email, name string)
	Cancellation(email, name string)
}
