package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accessservice "namemint/internal/access/service"
	accessstore "namemint/internal/access/store"
	regstore "namemint/internal/registration/store"
	"namemint/internal/season/models"
	"namemint/internal/season/service"
	"namemint/internal/season/store"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

type SeasonServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	registry *regstore.InMemory
	svc      *service.Service

	admin domain.Principal
	alice domain.Principal
}

func TestSeasonServiceSuite(t *testing.T) {
	suite.Run(t, new(SeasonServiceSuite))
}

func (s *SeasonServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.admin = domain.Principal("root")
	s.alice = domain.Principal("alice")

	access := accessservice.New(accessstore.NewInMemory())
	for _, p := range []domain.Principal{s.admin, s.alice} {
		_, err := access.Initialize(s.ctx, p)
		s.Require().NoError(err)
	}

	s.registry = regstore.NewInMemory()
	s.svc = service.New(store.NewInMemory(), s.registry, access)
}

func (s *SeasonServiceSuite) create() *models.Season {
	season, err := s.svc.CreateSeason(s.ctx, s.admin, service.CreateSeasonRequest{
		Name:          "launch",
		StartTime:     s.now.Add(-time.Hour),
		EndTime:       s.now.Add(time.Hour),
		MaxNames:      10,
		MinNameLength: 3,
		MaxNameLength: 10,
		Price:         100,
	})
	s.Require().NoError(err)
	return season
}

func (s *SeasonServiceSuite) TestCreateSeason() {
	season := s.create()
	s.Equal(models.StatusDraft, season.Status)
	s.False(season.ID.IsNil())
	s.Equal(s.now, season.CreatedAt)
}

func (s *SeasonServiceSuite) TestCreateSeasonAdminOnly() {
	_, err := s.svc.CreateSeason(s.ctx, s.alice, service.CreateSeasonRequest{Name: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *SeasonServiceSuite) TestCreateSeasonValidation() {
	_, err := s.svc.CreateSeason(s.ctx, s.admin, service.CreateSeasonRequest{
		Name:      "bad",
		StartTime: s.now,
		EndTime:   s.now.Add(-time.Hour),
		MaxNames:  10, MinNameLength: 3, MaxNameLength: 10,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *SeasonServiceSuite) TestActivate() {
	season := s.create()
	activated, err := s.svc.Activate(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, activated.Status)

	active, err := s.svc.GetActiveSeason(s.ctx)
	s.Require().NoError(err)
	s.Equal(season.ID, active.ID)
}

func (s *SeasonServiceSuite) TestActivateSecondSeasonConflicts() {
	first := s.create()
	_, err := s.svc.Activate(s.ctx, s.admin, first.ID)
	s.Require().NoError(err)

	second := s.create()
	_, err = s.svc.Activate(s.ctx, s.admin, second.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "already active")
}

func (s *SeasonServiceSuite) TestActivateNonDraft() {
	season := s.create()
	_, err := s.svc.Activate(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)

	_, err = s.svc.Activate(s.ctx, s.admin, season.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "only draft")
}

func (s *SeasonServiceSuite) TestActivateMissingSeason() {
	_, err := s.svc.Activate(s.ctx, s.admin, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *SeasonServiceSuite) TestEndAndCancel() {
	season := s.create()
	_, err := s.svc.Activate(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)

	ended, err := s.svc.End(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusEnded, ended.Status)

	// Terminal: cancel after end is a conflict, state unchanged.
	_, err = s.svc.Cancel(s.ctx, s.admin, season.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := s.svc.GetSeason(s.ctx, season.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusEnded, got.Status)
}

func (s *SeasonServiceSuite) TestCancelDraft() {
	season := s.create()
	cancelled, err := s.svc.Cancel(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)
}

func (s *SeasonServiceSuite) TestGetActiveSeasonNone() {
	s.create()
	_, err := s.svc.GetActiveSeason(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "no active season")
}

func (s *SeasonServiceSuite) TestGetActiveSeasonInfo() {
	season := s.create()
	_, err := s.svc.Activate(s.ctx, s.admin, season.ID)
	s.Require().NoError(err)

	info, err := s.svc.GetActiveSeasonInfo(s.ctx)
	s.Require().NoError(err)
	s.Equal(season.ID, info.Season.ID)
	s.Equal(10, info.RemainingCapacity)
	s.Equal(uint64(100), info.Price)
}

func (s *SeasonServiceSuite) TestListSeasons() {
	s.create()
	s.create()
	seasons, err := s.svc.ListSeasons(s.ctx)
	s.Require().NoError(err)
	s.Len(seasons, 2)
}
