// Package memstore keeps users and concerts in memory with the same contract
// as the MongoDB repositories. Tests use it to drive services and handlers.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	concerts map[primitive.ObjectID]models.Concert
}

func New() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]models.User),
		concerts: make(map[primitive.ObjectID]models.Concert),
	}
}

// Users and Concerts expose the store through the two repository method sets.
func (s *Store) Users() *Users       { return &Users{s: s} }
func (s *Store) Concerts() *Concerts { return &Concerts{s: s} }

type Users struct{ s *Store }

func cloneUser(u models.User) models.User {
	u.Tokens = slices.Clone(u.Tokens)
	u.Avatar = slices.Clone(u.Avatar)
	return u
}

func (r *Users) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(user.Email, primitive.NilObjectID) {
		return repository.ErrDuplicateEmail
	}
	now := repository.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Tokens == nil {
		user.Tokens = []models.Token{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *Users) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r *Users) FindByToken(_ context.Context, id primitive.ObjectID, token string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || !u.HasToken(token) {
		return models.User{}, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) mutate(id primitive.ObjectID, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = repository.Now()
	r.s.users[id] = u
	return nil
}

func (r *Users) AddToken(_ context.Context, id primitive.ObjectID, token string) error {
	return r.mutate(id, func(u *models.User) {
		u.Tokens = append(u.Tokens, models.Token{Token: token})
	})
}

func (r *Users) RemoveToken(_ context.Context, id primitive.ObjectID, token string) error {
	return r.mutate(id, func(u *models.User) {
		u.Tokens = slices.DeleteFunc(u.Tokens, func(t models.Token) bool { return t.Token == token })
	})
}

func (r *Users) ClearTokens(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) { u.Tokens = []models.Token{} })
}

func (r *Users) UpdateProfile(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicateEmail
	}
	u.Name = user.Name
	u.Email = user.Email
	u.Password = user.Password
	u.Age = user.Age
	u.UpdatedAt = repository.Now()
	user.UpdatedAt = u.UpdatedAt
	r.s.users[user.ID] = u
	return nil
}

func (r *Users) SetAvatar(_ context.Context, id primitive.ObjectID, data []byte) error {
	return r.mutate(id, func(u *models.User) { u.Avatar = slices.Clone(data) })
}

func (r *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

type Concerts struct{ s *Store }

func (r *Concerts) Create(_ context.Context, concert *models.Concert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := repository.Now()
	if concert.ID.IsZero() {
		concert.ID = primitive.NewObjectID()
	}
	concert.CreatedAt = now
	concert.UpdatedAt = now
	r.s.concerts[concert.ID] = *concert
	return nil
}

func (r *Concerts) List(_ context.Context, owner primitive.ObjectID, q models.ConcertQuery) ([]models.Concert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Concert{}
	for _, c := range r.s.concerts {
		if c.Owner != owner {
			continue
		}
		if q.Venue != "" && c.Venue != q.Venue {
			continue
		}
		out = append(out, c)
	}

	// Map iteration order is random; fall back to insertion order by id.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	if q.SortField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i], out[j], q.SortField)
			if q.SortDesc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return []models.Concert{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out, nil
}

func compare(a, b models.Concert, field string) int {
	switch field {
	case "concert":
		return strings.Compare(a.Concert, b.Concert)
	case "venue":
		return strings.Compare(a.Venue, b.Venue)
	case "dateAttended":
		return a.DateAttended.Compare(b.DateAttended)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func (r *Concerts) Get(_ context.Context, id, owner primitive.ObjectID) (models.Concert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.concerts[id]
	if !ok || c.Owner != owner {
		return models.Concert{}, repository.ErrConcertNotFound
	}
	return c, nil
}

func (r *Concerts) Update(_ context.Context, concert *models.Concert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.concerts[concert.ID]
	if !ok || c.Owner != concert.Owner {
		return repository.ErrConcertNotFound
	}
	c.Concert = concert.Concert
	c.Venue = concert.Venue
	c.DateAttended = concert.DateAttended
	c.UpdatedAt = repository.Now()
	concert.UpdatedAt = c.UpdatedAt
	r.s.concerts[c.ID] = c
	return nil
}

func (r *Concerts) Delete(_ context.Context, id, owner primitive.ObjectID) (models.Concert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.concerts[id]
	if !ok || c.Owner != owner {
		return models.Concert{}, repository.ErrConcertNotFound
	}
	delete(r.s.concerts, id)
	return c, nil
}

func (r *Concerts) DeleteByOwner(_ context.Context, owner primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, c := range r.s.concerts {
		if c.Owner == owner {
			delete(r.s.concerts, id)
			n++
		}
	}
	return n, nil
}

// CountConcerts reports how many concerts exist across all owners.
func (s *Store) CountConcerts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.concerts)
}
