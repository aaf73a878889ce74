package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/wallet-service/dto"
	"github.com/radieske/sports-bet-ledger/internal/wallet-service/repo"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) GetOrCreateWallet(ctx context.Context, userID string) (string, decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockRepo) Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (string, decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount, ref)
	return args.String(0), args.Get(1).(decimal.Decimal), args.Error(2)
}

func call(h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetWallet(t *testing.T) {
	r := new(MockRepo)
	r.On("GetOrCreateWallet", mock.Anything, "u1").Return("w1", decimal.RequireFromString("500.00"), nil)
	h := NewServer(zap.NewNop(), r).Router()

	rec := call(h, http.MethodGet, "/wallet", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.WalletResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "w1", got.WalletID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/wallet", "", "").Code)
}

func TestDeposit(t *testing.T) {
	r := new(MockRepo)
	r.On("Deposit", mock.Anything, "u1", mock.MatchedBy(func(a decimal.Decimal) bool {
		return a.Equal(decimal.RequireFromString("25.50"))
	}), "pix-1").Return("w1", decimal.RequireFromString("525.50"), nil)
	h := NewServer(zap.NewNop(), r).Router()

	rec := call(h, http.MethodPost, "/wallet/deposit", "u1", `{"amount":"25.50","external_ref":"pix-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	r.AssertExpectations(t)
}

func TestDeposit_Errors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := new(MockRepo)
	r.On("Deposit", mock.Anything, "neg", mock.Anything, "").Return("", decimal.Zero, repo.ErrInvalidAmount)
	r.On("Deposit", mock.Anything, "ghost", mock.Anything, "").Return("", decimal.Zero, repo.ErrNotFound)
	r.On("Deposit", mock.Anything, "tampered", mock.Anything, "").Return("w9", decimal.Zero, balance.ErrIntegrity)
	h := NewServer(zap.New(core), r).Router()

	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodPost, "/wallet/deposit", "neg", `{"amount":"-1"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodPost, "/wallet/deposit", "ghost", `{"amount":"1"}`).Code)
	assert.Equal(t, http.StatusInternalServerError, call(h, http.MethodPost, "/wallet/deposit", "tampered", `{"amount":"1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodPost, "/wallet/deposit", "u1", `{`).Code)

	alerts := logs.FilterMessage("wallet balance failed authentication").All()
	require.Len(t, alerts, 1)
	assert.Equal(t, "w9", alerts[0].ContextMap()["walletId"])
}
