package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"namemint/internal/ledger"
	"namemint/internal/ledger/mocks"
)

func TestQueryBalanceFirstAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").Return(uint64(500), nil)

	balance := ledger.QueryBalance(context.Background(), oracle, "treasury", 3)
	require.True(t, balance.Known)
	require.Equal(t, uint64(500), balance.Amount)
}

func TestQueryBalanceRetriesThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	gomock.InOrder(
		oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").Return(uint64(0), errors.New("connection reset")),
		oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").Return(uint64(500), nil),
	)

	balance := ledger.QueryBalance(context.Background(), oracle, "treasury", 3)
	require.True(t, balance.Known)
	require.Equal(t, uint64(500), balance.Amount)
}

func TestQueryBalanceExhaustionIsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").
		Return(uint64(0), errors.New("connection reset")).
		Times(3)

	balance := ledger.QueryBalance(context.Background(), oracle, "treasury", 3)
	require.False(t, balance.Known, "exhaustion must report unknown, not zero")
	require.Zero(t, balance.Amount)
}

func TestQueryBalanceClampsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").Return(uint64(1), nil)

	balance := ledger.QueryBalance(context.Background(), oracle, "treasury", 0)
	require.True(t, balance.Known)
}

func TestQueryBalanceStopsOnCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	oracle.EXPECT().BalanceOf(gomock.Any(), "treasury").
		DoAndReturn(func(context.Context, string) (uint64, error) {
			cancel()
			return 0, errors.New("connection reset")
		})

	balance := ledger.QueryBalance(ctx, oracle, "treasury", 5)
	require.False(t, balance.Known)
}
