package service

import (
	"context"
	"errors"
	"log/slog"

	"shopagg/internal/cache"
	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/repository"
)

type CityService struct {
	cityRepo   repository.CityRepository
	userRepo   repository.UserRepository
	homeCityID uint
}

func NewCityService(cityRepo repository.CityRepository, userRepo repository.UserRepository, homeCityID uint) *CityService {
	return &CityService{cityRepo: cityRepo, userRepo: userRepo, homeCityID: homeCityID}
}

// Resolve returns the city listings are restricted to. The session pick wins,
// then the user's preferred city, then the home city; the latter two are
// remembered in the session. A session pick that no longer exists is dropped
// and yields no restriction. A nil city means no restriction.
func (s *CityService) Resolve(ctx context.Context, id Identity) (*models.City, error) {
	sess := id.Session

	if sess != nil {
		if picked := sess.SelectedCityID(); picked != nil {
			city, err := s.lookup(ctx, *picked)
			if err != nil {
				return nil, err
			}
			if city == nil {
				middleware.Logger.WarnContext(ctx, "Dropping stale city selection", slog.Uint64("city_id", uint64(*picked)))
				sess.ClearSelectedCity()
			}
			return city, nil
		}
	}

	var city *models.City
	if id.Authenticated() {
		user, err := s.userRepo.GetByID(ctx, id.UserID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if user != nil && user.PreferredCityID != nil {
			if city, err = s.lookup(ctx, *user.PreferredCityID); err != nil {
				return nil, err
			}
		}
	}
	if city == nil && s.homeCityID != 0 {
		var err error
		if city, err = s.lookup(ctx, s.homeCityID); err != nil {
			return nil, err
		}
	}

	if city != nil && sess != nil {
		sess.SelectCity(city.ID)
	}
	return city, nil
}

func (s *CityService) lookup(ctx context.Context, id uint) (*models.City, error) {
	city, err := s.cityRepo.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, nil
	}
	return city, err
}

// Select stores an explicit city pick for the session.
func (s *CityService) Select(ctx context.Context, id Identity, cityID uint) (*models.City, error) {
	city, err := s.cityRepo.GetByID(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if id.Session != nil {
		id.Session.SelectCity(city.ID)
	}
	return city, nil
}

// Options lists all cities by name and flags current.
func (s *CityService) Options(ctx context.Context, current *models.City) ([]models.CityOption, error) {
	var cities []models.City
	err := cache.Aside(ctx, cache.CityListKey(), &cities, cache.CityListTTL, func() error {
		var err error
		cities, err = s.cityRepo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.CityOption, len(cities))
	for i, c := range cities {
		out[i] = models.CityOption{City: c, Selected: current != nil && current.ID == c.ID}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
