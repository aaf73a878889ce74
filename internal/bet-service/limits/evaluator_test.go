package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStakeReader struct {
	mock.Mock
}

func (m *MockStakeReader) StakedSince(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

var now = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

func TestCheck_DailyCapBoundary(t *testing.T) {
	ctx := context.Background()
	lim := &Limits{UserID: "u1", Daily: dp("100.00")}

	tests := []struct {
		stake string
		ok    bool
	}{
		{"10.00", true},
		{"10.01", false},
		{"11.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.stake, func(t *testing.T) {
			r := new(MockStakeReader)
			r.On("StakedSince", ctx, "u1", now.Add(-24*time.Hour)).Return(d("90.00"), nil)

			err := NewEvaluator().Check(ctx, r, lim, "u1", d(tt.stake), now)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBetLimitExceeded)
				var ex *ExceededError
				require.True(t, errors.As(err, &ex))
				assert.Equal(t, Daily, ex.Window)
				assert.True(t, ex.Staked.Equal(d("90.00")))
			}
			r.AssertExpectations(t)
		})
	}
}

func TestCheck_SelfExclusionPrecedesEverything(t *testing.T) {
	until := now.Add(48 * time.Hour)
	lim := &Limits{UserID: "u1", Daily: dp("1000"), Single: dp("500"), SelfExclusionUntil: &until}
	r := new(MockStakeReader)

	err := NewEvaluator().Check(context.Background(), r, lim, "u1", d("5.00"), now)

	assert.ErrorIs(t, err, ErrAccountLocked)
	r.AssertNotCalled(t, "StakedSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_ExpiredSelfExclusionIsIgnored(t *testing.T) {
	until := now.Add(-time.Minute)
	lim := &Limits{UserID: "u1", SelfExclusionUntil: &until}

	err := NewEvaluator().Check(context.Background(), new(MockStakeReader), lim, "u1", d("5.00"), now)
	assert.NoError(t, err)
}

func TestCheck_NoLimitsRowSkipsAllChecks(t *testing.T) {
	r := new(MockStakeReader)

	err := NewEvaluator().Check(context.Background(), r, nil, "u1", d("100000.00"), now)

	assert.NoError(t, err)
	r.AssertNotCalled(t, "StakedSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_SingleStakeCap(t *testing.T) {
	lim := &Limits{UserID: "u1", Single: dp("50.00")}
	r := new(MockStakeReader)

	assert.NoError(t, NewEvaluator().Check(context.Background(), r, lim, "u1", d("50.00"), now))

	err := NewEvaluator().Check(context.Background(), r, lim, "u1", d("50.01"), now)
	var ex *ExceededError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, Single, ex.Window)
	assert.Contains(t, err.Error(), "single stake")
}

func TestCheck_WeeklyAndMonthlyWindows(t *testing.T) {
	ctx := context.Background()
	lim := &Limits{UserID: "u1", Daily: dp("100"), Weekly: dp("300"), Monthly: dp("1000")}

	r := new(MockStakeReader)
	r.On("StakedSince", ctx, "u1", now.Add(-24*time.Hour)).Return(d("0"), nil)
	r.On("StakedSince", ctx, "u1", now.Add(-7*24*time.Hour)).Return(d("280"), nil)

	err := NewEvaluator().Check(ctx, r, lim, "u1", d("25"), now)
	var ex *ExceededError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, Weekly, ex.Window)

	r2 := new(MockStakeReader)
	r2.On("StakedSince", ctx, "u1", now.Add(-24*time.Hour)).Return(d("0"), nil)
	r2.On("StakedSince", ctx, "u1", now.Add(-7*24*time.Hour)).Return(d("0"), nil)
	r2.On("StakedSince", ctx, "u1", now.Add(-30*24*time.Hour)).Return(d("990"), nil)

	err = NewEvaluator().Check(ctx, r2, lim, "u1", d("20"), now)
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, Monthly, ex.Window)
}

// Apostas PENDING entram na soma da janela (escolha conservadora): o leitor
// recebe o total já incluindo as pendentes e o avaliador não distingue status.
func TestCheck_PendingBetsCountTowardsWindow(t *testing.T) {
	ctx := context.Background()
	lim := &Limits{UserID: "u1", Daily: dp("100")}

	r := new(MockStakeReader)
	r.On("StakedSince", ctx, "u1", now.Add(-24*time.Hour)).Return(d("95.00"), nil) // tudo pendente

	err := NewEvaluator().Check(ctx, r, lim, "u1", d("10.00"), now)
	assert.ErrorIs(t, err, ErrBetLimitExceeded)
}

func TestCheck_ReaderErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	r := new(MockStakeReader)
	r.On("StakedSince", ctx, "u1", mock.Anything).Return(decimal.Zero, boom)

	err := NewEvaluator().Check(ctx, r, &Limits{UserID: "u1", Daily: dp("100")}, "u1", d("1"), now)

	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrBetLimitExceeded))
}

func TestWindowDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, WindowDuration(Daily))
	assert.Equal(t, 7*24*time.Hour, WindowDuration(Weekly))
	assert.Equal(t, 30*24*time.Hour, WindowDuration(Monthly))
	assert.Zero(t, WindowDuration(Single))
}
