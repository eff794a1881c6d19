package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	accessservice "namemint/internal/access/service"
	accessstore "namemint/internal/access/store"
	"namemint/internal/ledger/mocks"
	"namemint/internal/treasury/service"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
)

const (
	treasuryAccount = "namemint-treasury"
	transferFee     = 10
)

type TreasuryServiceSuite struct {
	suite.Suite
	ctx    context.Context
	ctrl   *gomock.Controller
	oracle *mocks.MockOracle
	svc    *service.Service

	admin domain.Principal
	alice domain.Principal
}

func TestTreasuryServiceSuite(t *testing.T) {
	suite.Run(t, new(TreasuryServiceSuite))
}

func (s *TreasuryServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.oracle = mocks.NewMockOracle(s.ctrl)

	s.admin = domain.Principal("root")
	s.alice = domain.Principal("alice")

	access := accessservice.New(accessstore.NewInMemory())
	for _, p := range []domain.Principal{s.admin, s.alice} {
		_, err := access.Initialize(s.ctx, p)
		s.Require().NoError(err)
	}

	s.svc = service.New(s.oracle, access, treasuryAccount, transferFee, 1)
}

func (s *TreasuryServiceSuite) TestGetBalance() {
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(500), nil)

	balance, err := s.svc.GetBalance(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Equal(uint64(500), balance)
}

func (s *TreasuryServiceSuite) TestGetBalanceAdminOnly() {
	_, err := s.svc.GetBalance(s.ctx, s.alice)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *TreasuryServiceSuite) TestGetBalanceUnknown() {
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).
		Return(uint64(0), errors.New("connection refused"))

	_, err := s.svc.GetBalance(s.ctx, s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *TreasuryServiceSuite) TestWithdraw() {
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(500), nil)
	s.oracle.EXPECT().Transfer(gomock.Any(), "dest-wallet", uint64(100), uint64(transferFee)).
		Return(domain.BlockIndex(42), nil)

	blockIndex, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{
		To:     "dest-wallet",
		Amount: 100,
	})
	s.Require().NoError(err)
	s.Equal(domain.BlockIndex(42), blockIndex)
}

func (s *TreasuryServiceSuite) TestWithdrawAdminOnly() {
	_, err := s.svc.Withdraw(s.ctx, s.alice, service.WithdrawRequest{To: "dest", Amount: 100})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *TreasuryServiceSuite) TestWithdrawInsufficientFunds() {
	// Balance covers the amount but not the fee on top.
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(105), nil)

	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "dest", Amount: 100})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "insufficient funds")
}

func (s *TreasuryServiceSuite) TestWithdrawAmountOverflowRejected() {
	// An amount that would wrap uint64 when the fee is added on top must
	// still read as insufficient, not slip past the balance guard.
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(105), nil)

	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{
		To:     "dest",
		Amount: math.MaxUint64,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "insufficient funds")
}

func (s *TreasuryServiceSuite) TestWithdrawBalanceBelowFee() {
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(transferFee-1), nil)

	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "dest", Amount: 1})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "insufficient funds")
}

func (s *TreasuryServiceSuite) TestWithdrawUnknownBalanceAborts() {
	// An unreachable oracle must abort as unavailable, never report
	// insufficient funds.
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).
		Return(uint64(0), errors.New("timeout"))

	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "dest", Amount: 100})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.NotContains(err.Error(), "insufficient")
}

func (s *TreasuryServiceSuite) TestWithdrawValidation() {
	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "", Amount: 100})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "dest", Amount: 0})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *TreasuryServiceSuite) TestWithdrawTransferFailure() {
	s.oracle.EXPECT().BalanceOf(gomock.Any(), treasuryAccount).Return(uint64(500), nil)
	s.oracle.EXPECT().Transfer(gomock.Any(), "dest", uint64(100), uint64(transferFee)).
		Return(domain.BlockIndex(0), errors.New("ledger rejected transfer"))

	_, err := s.svc.Withdraw(s.ctx, s.admin, service.WithdrawRequest{To: "dest", Amount: 100})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
