package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accessservice "namemint/internal/access/service"
	accessstore "namemint/internal/access/store"
	"namemint/internal/migration/models"
	"namemint/internal/migration/service"
	regmodels "namemint/internal/registration/models"
	regstore "namemint/internal/registration/store"
	seasonmodels "namemint/internal/season/models"
	seasonstore "namemint/internal/season/store"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

type MigrationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	access   *accessstore.InMemory
	seasons  *seasonstore.InMemory
	registry *regstore.InMemory
	svc      *service.Service

	admin domain.Principal
	alice domain.Principal
}

func TestMigrationServiceSuite(t *testing.T) {
	suite.Run(t, new(MigrationServiceSuite))
}

func (s *MigrationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.admin = domain.Principal("root")
	s.alice = domain.Principal("alice")

	s.access = accessstore.NewInMemory()
	gate := accessservice.New(s.access)
	for _, p := range []domain.Principal{s.admin, s.alice} {
		_, err := gate.Initialize(s.ctx, p)
		s.Require().NoError(err)
	}

	s.seasons = seasonstore.NewInMemory()
	season, err := seasonmodels.NewSeason("launch",
		s.now.Add(-time.Hour), s.now.Add(time.Hour), 10, 3, 10, 100, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.seasons.Create(s.ctx, season))

	s.registry = regstore.NewInMemory()
	payment := &regmodels.VerifiedPayment{
		ID: domain.NewPaymentID(), Payer: s.alice, Amount: 100,
		BlockIndex: 5, VerifiedAt: s.now, RegistrationName: "abc",
	}
	record := &regmodels.NameRecord{
		Name: "abc", Target: "t", TargetType: regmodels.AddressTypeCanister,
		Owner: s.alice, SeasonID: season.ID, CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.registry.CommitRegistration(s.ctx, payment, record, 10))

	s.svc = service.New(s.access, s.seasons, s.registry, gate, models.Version{Major: 1})
}

// checksum of the live aggregate state, for before/after comparisons.
func (s *MigrationServiceSuite) stateChecksum() string {
	accessState, err := s.access.Export(s.ctx)
	s.Require().NoError(err)
	seasons, err := s.seasons.Export(s.ctx)
	s.Require().NoError(err)
	registry, err := s.registry.Export(s.ctx)
	s.Require().NoError(err)
	sum, err := models.Checksum(models.Snapshot{Access: accessState, Seasons: seasons, Registry: registry})
	s.Require().NoError(err)
	return sum
}

func (s *MigrationServiceSuite) TestMigrateVersionBump() {
	info, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 1, Minor: 1})
	s.Require().NoError(err)
	s.True(info.Success)
	s.False(info.Rollback)
	s.NotEmpty(info.Checksum)
	s.Equal(models.Version{Major: 1, Minor: 1}, s.svc.Version())
}

func (s *MigrationServiceSuite) TestMigrateAppliesStep() {
	s.svc.RegisterStep(models.Version{Major: 2}, models.Step{
		Name: "rename-season",
		Transform: func(snap models.Snapshot) (models.Snapshot, error) {
			for _, season := range snap.Seasons {
				season.Name = "renamed-" + season.Name
			}
			return snap, nil
		},
		Validate: func(snap models.Snapshot) error {
			if len(snap.Seasons) == 0 {
				return errors.New("seasons lost")
			}
			return nil
		},
	})

	info, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 2})
	s.Require().NoError(err)
	s.True(info.Success)

	seasons, err := s.seasons.Export(s.ctx)
	s.Require().NoError(err)
	s.Equal("renamed-launch", seasons[0].Name)
}

func (s *MigrationServiceSuite) TestRejectedStepLeavesStateIdentical() {
	before := s.stateChecksum()

	s.svc.RegisterStep(models.Version{Major: 2}, models.Step{
		Name: "always-rejected",
		Transform: func(snap models.Snapshot) (models.Snapshot, error) {
			snap.Seasons = nil
			return snap, nil
		},
		Validate: func(models.Snapshot) error { return errors.New("no") },
	})

	_, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 2})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	s.Equal(before, s.stateChecksum())
	s.Equal(models.Version{Major: 1}, s.svc.Version())
}

func (s *MigrationServiceSuite) TestFailedTransformLeavesStateIdentical() {
	before := s.stateChecksum()

	s.svc.RegisterStep(models.Version{Major: 2}, models.Step{
		Name: "broken",
		Transform: func(models.Snapshot) (models.Snapshot, error) {
			return models.Snapshot{}, errors.New("boom")
		},
	})

	_, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 2})
	s.Require().Error(err)
	s.Equal(before, s.stateChecksum())
}

func (s *MigrationServiceSuite) TestDowngradeRejected() {
	_, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 0, Minor: 9})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "rollback")
}

func (s *MigrationServiceSuite) TestMigrateAdminOnly() {
	_, err := s.svc.Migrate(s.ctx, s.alice, models.Version{Major: 2})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *MigrationServiceSuite) TestEmergencyRollback() {
	before := s.stateChecksum()

	s.svc.RegisterStep(models.Version{Major: 2}, models.Step{
		Name: "drop-seasons",
		Transform: func(snap models.Snapshot) (models.Snapshot, error) {
			snap.Seasons = nil
			return snap, nil
		},
	})
	_, err := s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 2})
	s.Require().NoError(err)
	s.NotEqual(before, s.stateChecksum())

	info, err := s.svc.EmergencyRollback(s.ctx, s.admin, models.Version{Major: 1})
	s.Require().NoError(err)
	s.True(info.Success)
	s.True(info.Rollback)

	s.Equal(before, s.stateChecksum())
	s.Equal(models.Version{Major: 1}, s.svc.Version())
}

func (s *MigrationServiceSuite) TestRollbackWithoutRestorePoint() {
	_, err := s.svc.EmergencyRollback(s.ctx, s.admin, models.Version{Major: 0})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MigrationServiceSuite) TestRollbackForwardRejected() {
	_, err := s.svc.EmergencyRollback(s.ctx, s.admin, models.Version{Major: 3})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *MigrationServiceSuite) TestHistoryRecordsEveryAttempt() {
	// A failed downgrade, a successful migration, a successful rollback, a
	// rollback with no restore point, and a forbidden call. Only the first
	// four are attempts; authorization failures never reach the history.
	_, _ = s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 0})
	_, _ = s.svc.Migrate(s.ctx, s.admin, models.Version{Major: 1, Minor: 1})
	_, _ = s.svc.EmergencyRollback(s.ctx, s.admin, models.Version{Major: 1})
	_, _ = s.svc.EmergencyRollback(s.ctx, s.admin, models.Version{Major: 0})
	_, _ = s.svc.Migrate(s.ctx, s.alice, models.Version{Major: 1, Minor: 2})

	history, err := s.svc.History(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(history, 4)

	s.False(history[0].Success)
	s.True(history[1].Success)
	s.True(history[2].Success)
	s.True(history[2].Rollback)
	s.False(history[3].Success)
	s.NotEmpty(history[0].Log)

	_, err = s.svc.History(s.ctx, s.alice)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *MigrationServiceSuite) TestChecksumDeterministic() {
	sum1 := s.stateChecksum()
	sum2 := s.stateChecksum()
	s.Equal(sum1, sum2)
}
