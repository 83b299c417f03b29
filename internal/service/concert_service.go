package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/validation"
)

// ConcertUpdatableFields are the body keys PATCH /concerts/:id accepts.
var ConcertUpdatableFields = []string{"concert", "venue", "dateAttended"}

type ConcertService struct {
	concerts ConcertStore
}

func NewConcertService(concerts ConcertStore) *ConcertService {
	return &ConcertService{concerts: concerts}
}

// ConcertInput is a create or patch body. Nil fields are left unchanged on
// patch and reported missing on create.
type ConcertInput struct {
	Concert      *string `json:"concert"`
	Venue        *string `json:"venue"`
	DateAttended *string `json:"dateAttended"`
}

func (in ConcertInput) apply(c *models.Concert, r *validation.Result) {
	if in.Concert != nil {
		c.Concert = strings.TrimSpace(*in.Concert)
	}
	if in.Venue != nil {
		c.Venue = strings.TrimSpace(*in.Venue)
	}
	if in.DateAttended != nil {
		date, err := models.ParseDate(*in.DateAttended)
		if err != nil {
			r.Add("dateAttended", "date", "dateAttended must be a date")
			return
		}
		c.DateAttended = date
	}
}

func (s *ConcertService) Create(ctx context.Context, owner primitive.ObjectID, in ConcertInput) (models.Concert, error) {
	concert := models.Concert{Owner: owner}

	var parseErrs validation.Result
	in.apply(&concert, &parseErrs)
	if err := validateConcert(concert, parseErrs); err != nil {
		return models.Concert{}, err
	}

	if err := s.concerts.Create(ctx, &concert); err != nil {
		return models.Concert{}, err
	}
	return concert, nil
}

func (s *ConcertService) List(ctx context.Context, owner primitive.ObjectID, q models.ConcertQuery) ([]models.Concert, error) {
	return s.concerts.List(ctx, owner, q)
}

func (s *ConcertService) Get(ctx context.Context, id string, owner primitive.ObjectID) (models.Concert, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Concert{}, repository.ErrConcertNotFound
	}
	return s.concerts.Get(ctx, oid, owner)
}

func (s *ConcertService) Update(ctx context.Context, id string, owner primitive.ObjectID, in ConcertInput) (models.Concert, error) {
	concert, err := s.Get(ctx, id, owner)
	if err != nil {
		return models.Concert{}, err
	}

	var parseErrs validation.Result
	in.apply(&concert, &parseErrs)
	if err := validateConcert(concert, parseErrs); err != nil {
		return models.Concert{}, err
	}

	if err := s.concerts.Update(ctx, &concert); err != nil {
		return models.Concert{}, err
	}
	return concert, nil
}

func (s *ConcertService) Delete(ctx context.Context, id string, owner primitive.ObjectID) (models.Concert, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Concert{}, repository.ErrConcertNotFound
	}
	return s.concerts.Delete(ctx, oid, owner)
}

// validateConcert reports date parse failures ahead of the model rules and
// drops the duplicate "required" error a failed parse leaves behind.
func validateConcert(c models.Concert, parseErrs validation.Result) error {
	result := c.Validate()
	if parseErrs.Valid() {
		return result.Err()
	}
	merged := parseErrs
	for _, fe := range result.Errors {
		if fe.Field == "dateAttended" {
			continue
		}
		merged.Add(fe.Field, fe.Rule, fe.Message)
	}
	return merged.Err()
}

