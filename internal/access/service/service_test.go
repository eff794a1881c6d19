package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"namemint/internal/access/models"
	"namemint/internal/access/store"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/platform/audit/publisher"
	auditmem "namemint/pkg/platform/audit/store/memory"
)

type AccessServiceSuite struct {
	suite.Suite
	service *Service
	audit   *auditmem.InMemoryStore
	ctx     context.Context
}

func TestAccessServiceSuite(t *testing.T) {
	suite.Run(t, new(AccessServiceSuite))
}

func (s *AccessServiceSuite) SetupTest() {
	s.audit = auditmem.NewInMemoryStore()
	s.service = New(store.NewInMemory(), WithAuditPublisher(publisher.NewPublisher(s.audit)))
	s.ctx = context.Background()
}

func (s *AccessServiceSuite) TestInitializeBootstrap() {
	s.Run("first caller becomes admin", func() {
		role, err := s.service.Initialize(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, role)
	})

	s.Run("second caller becomes user", func() {
		role, err := s.service.Initialize(s.ctx, "bob")
		s.Require().NoError(err)
		s.Equal(models.RoleUser, role)
	})

	s.Run("re-initializing changes nothing", func() {
		role, err := s.service.Initialize(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, role)

		role, err = s.service.GetRole(s.ctx, "bob")
		s.Require().NoError(err)
		s.Equal(models.RoleUser, role)
	})

	s.Run("anonymous caller is a no-op", func() {
		role, err := s.service.Initialize(s.ctx, domain.Anonymous)
		s.Require().NoError(err)
		s.Equal(models.RoleGuest, role)
	})
}

func (s *AccessServiceSuite) TestGetRole() {
	s.Run("anonymous resolves to guest without lookup", func() {
		role, err := s.service.GetRole(s.ctx, domain.Anonymous)
		s.Require().NoError(err)
		s.Equal(models.RoleGuest, role)
	})

	s.Run("unregistered principal is a fatal error", func() {
		_, err := s.service.GetRole(s.ctx, "never-seen")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Contains(err.Error(), "caller not registered")
	})
}

func (s *AccessServiceSuite) TestAssignRole() {
	_, err := s.service.Initialize(s.ctx, "root")
	s.Require().NoError(err)
	_, err = s.service.Initialize(s.ctx, "carol")
	s.Require().NoError(err)

	s.Run("admin can promote a user", func() {
		s.Require().NoError(s.service.AssignRole(s.ctx, "root", "carol", models.RoleAdmin))
		role, err := s.service.GetRole(s.ctx, "carol")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, role)
	})

	s.Run("admin can demote another admin", func() {
		s.Require().NoError(s.service.AssignRole(s.ctx, "root", "carol", models.RoleUser))
		role, err := s.service.GetRole(s.ctx, "carol")
		s.Require().NoError(err)
		s.Equal(models.RoleUser, role)
	})

	s.Run("non-admin is rejected", func() {
		err := s.service.AssignRole(s.ctx, "carol", "root", models.RoleUser)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("guest role cannot be assigned", func() {
		err := s.service.AssignRole(s.ctx, "root", "carol", models.RoleGuest)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("assignment targets unseen principals too", func() {
		s.Require().NoError(s.service.AssignRole(s.ctx, "root", "dave", models.RoleUser))
		role, err := s.service.GetRole(s.ctx, "dave")
		s.Require().NoError(err)
		s.Equal(models.RoleUser, role)
	})
}

func (s *AccessServiceSuite) TestHasPermission() {
	_, err := s.service.Initialize(s.ctx, "root") // admin
	s.Require().NoError(err)
	_, err = s.service.Initialize(s.ctx, "user")
	s.Require().NoError(err)

	cases := []struct {
		caller   domain.Principal
		required models.Role
		want     bool
	}{
		{"root", models.RoleAdmin, true},
		{"root", models.RoleUser, true}, // admin short-circuit beats required=user
		{"root", models.RoleGuest, true},
		{"user", models.RoleAdmin, false},
		{"user", models.RoleUser, true},
		{"user", models.RoleGuest, true},
		{domain.Anonymous, models.RoleAdmin, false},
		{domain.Anonymous, models.RoleUser, false},
		{domain.Anonymous, models.RoleGuest, true},
	}
	for _, tc := range cases {
		got, err := s.service.HasPermission(s.ctx, tc.caller, tc.required)
		s.Require().NoError(err)
		s.Equal(tc.want, got, "caller=%s required=%s", tc.caller, tc.required)
	}
}

func (s *AccessServiceSuite) TestHasPermissionRegistersOnFirstContact() {
	ok, err := s.service.HasPermission(s.ctx, "first-contact", models.RoleUser)
	s.Require().NoError(err)
	s.True(ok, "first contact bootstraps admin, which satisfies user")

	role, err := s.service.GetRole(s.ctx, "first-contact")
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, role)
}
