package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/config"
	"concertlog/api/internal/metrics"
	"concertlog/api/internal/media/avatar"
	"concertlog/api/internal/media/sniffer"
	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/security"
)

// UserUpdatableFields are the body keys PATCH /users/me accepts.
var UserUpdatableFields = []string{"name", "email", "password", "age"}

type UserService struct {
	users    UserStore
	concerts ConcertStore
	notifier Notifier
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewUserService(users UserStore, concerts ConcertStore, notifier Notifier, cfg *config.AppConfig, log zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		concerts: concerts,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "users").Logger(),
	}
}

// ProfileUpdate carries the fields present in a PATCH body; nil means absent.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Age      *int    `json:"age"`
}

func (s *UserService) UpdateProfile(ctx context.Context, user models.User, upd ProfileUpdate) (models.User, error) {
	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		user.Email = models.NormalizeEmail(*upd.Email)
	}
	if upd.Age != nil {
		user.Age = *upd.Age
	}

	result := user.Validate()
	if upd.Password != nil {
		result.Merge(models.ValidatePassword(*upd.Password))
	}
	if err := result.Err(); err != nil {
		return models.User{}, err
	}

	if upd.Password != nil {
		hash, err := security.HashPassword(strings.TrimSpace(*upd.Password), s.cfg.Security.BcryptCost)
		if err != nil {
			return models.User{}, err
		}
		user.Password = hash
	}

	if err := s.users.UpdateProfile(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// DeleteAccount removes the user's concerts, then the user, then sends the
// cancellation email.
func (s *UserService) DeleteAccount(ctx context.Context, user models.User) (models.User, error) {
	n, err := s.concerts.DeleteByOwner(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID.Hex()).Int64("concerts_removed", n).Msg("account deleted")
	s.notifier.Cancellation(user.Email, user.Name)
	return user, nil
}

// AvatarError is a rejected upload; its message is shown to the client.
type AvatarError struct {
	Msg string
}

func (e *AvatarError) Error() string { return e.Msg }

const (
	msgFileTooLarge  = "File too large"
	msgUploadImage   = "Please upload an image"
	msgUnreadableImg = "Please upload a valid jpg, jpeg or png image"
)

func (s *UserService) UploadAvatar(ctx context.Context, user models.User, filename string, data []byte) error {
	if !sniffer.AllowedFilename(filename) {
		return &AvatarError{Msg: msgUploadImage}
	}
	if int64(len(data)) > s.cfg.Avatar.MaxBytes {
		return &AvatarError{Msg: msgFileTooLarge}
	}

	normalized, err := avatar.Normalize(data, s.cfg.Avatar.Size, s.cfg.Avatar.MaxPixels)
	if err != nil {
		s.log.Debug().Err(err).Str("user_id", user.ID.Hex()).Msg("avatar rejected")
		return &AvatarError{Msg: msgUnreadableImg}
	}

	if err := s.users.SetAvatar(ctx, user.ID, normalized); err != nil {
		return err
	}
	metrics.AvatarBytes.Observe(float64(len(data)))
	return nil
}

// RemoveAvatar clears the avatar and reports whether there was one.
func (s *UserService) RemoveAvatar(ctx context.Context, user models.User) (bool, error) {
	had := len(user.Avatar) > 0
	if err := s.users.SetAvatar(ctx, user.ID, nil); err != nil {
		return had, err
	}
	return had, nil
}

func (s *UserService) Avatar(ctx context.Context, userID string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrAvatarNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, fmt.Errorf("load avatar: %w", err)
	}
	if len(user.Avatar) == 0 {
		return nil, ErrAvatarNotFound
	}
	return user.Avatar, nil
}
