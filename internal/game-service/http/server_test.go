package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/dto"
	"github.com/radieske/rps-wager-platform/internal/game-service/engine"
	"github.com/radieske/rps-wager-platform/internal/game-service/ledger"
	"github.com/radieske/rps-wager-platform/internal/game-service/repo"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store := repo.NewMemory()
	l := ledger.New(store, nil, nil, decimal.NewFromInt(1000))
	return NewServer(nil, engine.New(store, l, nil, nil, nil), nil, nil).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestMatchFlowOverHTTP(t *testing.T) {
	h := newRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/accounts", `{"displayName":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alice := decodeBody[dto.AccountResponse](t, rec).AccountID

	rec = do(t, h, http.MethodPost, "/v1/accounts", `{"displayName":"bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decodeBody[dto.AccountResponse](t, rec).AccountID

	rec = do(t, h, http.MethodPost, "/v1/matches", `{"accountId":1,"bet":"12.50","roomName":"arena"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	matchID := decodeBody[dto.MatchCreatedResponse](t, rec).MatchID

	rec = do(t, h, http.MethodGet, "/v1/matches/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	open := decodeBody[[]dto.OpenMatchResponse](t, rec)
	require.Len(t, open, 1)
	assert.True(t, open[0].IsWaiting)
	assert.True(t, open[0].Bet.Equal(decimal.RequireFromString("12.5")))

	rec = do(t, h, http.MethodPost, "/v1/rooms/arena/join", `{"accountId":2}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/rooms/arena/moves", `{"accountId":1,"move":"rock"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.MoveResponse{Status: "Waiting"}, decodeBody[dto.MoveResponse](t, rec))

	rec = do(t, h, http.MethodGet, "/v1/matches/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	inFlight := decodeBody[dto.MatchResponse](t, rec)
	assert.Equal(t, "Full", inFlight.State)
	assert.Empty(t, inFlight.PlayerOneMove, "moves hidden until the match ends")

	rec = do(t, h, http.MethodPost, "/v1/rooms/arena/moves", `{"accountId":2,"move":"Paper"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[dto.MoveResponse](t, rec)
	assert.Equal(t, "Resolved", res.Status)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, bob, *res.WinnerID)

	rec = do(t, h, http.MethodGet, "/v1/accounts/1/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[dto.BalanceResponse](t, rec)
	assert.Equal(t, alice, bal.AccountID)
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("987.5")), bal.Balance.String())

	rec = do(t, h, http.MethodGet, "/v1/accounts/2/ledger?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]dto.LedgerEntryResponse](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, string(domain.CategoryGameSettlement), entries[0].Category)
	assert.Equal(t, matchID, *entries[0].MatchID)

	rec = do(t, h, http.MethodGet, "/v1/matches/1", "")
	ended := decodeBody[dto.MatchResponse](t, rec)
	assert.Equal(t, "Resolved", ended.State)
	assert.Equal(t, "Rock", ended.PlayerOneMove)
	assert.Equal(t, "Paper", ended.PlayerTwoMove)
}

func TestErrorMapping(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodPost, "/v1/accounts", `{"displayName":"alice"}`)
	do(t, h, http.MethodPost, "/v1/accounts", `{"displayName":"bob"}`)
	do(t, h, http.MethodPost, "/v1/matches", `{"accountId":1,"bet":10,"roomName":"arena"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   domain.Kind
	}{
		{"bad json", http.MethodPost, "/v1/accounts", `{`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"missing name", http.MethodPost, "/v1/accounts", `{}`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"duplicate name", http.MethodPost, "/v1/accounts", `{"displayName":"alice"}`, http.StatusConflict, domain.KindConflict},
		{"unknown account", http.MethodGet, "/v1/accounts/99/balance", "", http.StatusNotFound, domain.KindNotFound},
		{"bad id", http.MethodGet, "/v1/accounts/abc/balance", "", http.StatusBadRequest, domain.KindInvalidArgument},
		{"bad limit", http.MethodGet, "/v1/accounts/1/ledger?limit=x", "", http.StatusBadRequest, domain.KindInvalidArgument},
		{"overdraft", http.MethodPost, "/v1/transfers", `{"fromAccountId":1,"toAccountId":2,"amount":"5000"}`, http.StatusUnprocessableEntity, domain.KindInsufficientFunds},
		{"self transfer", http.MethodPost, "/v1/transfers", `{"fromAccountId":1,"toAccountId":1,"amount":"5"}`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"bet above balance", http.MethodPost, "/v1/matches", `{"accountId":2,"bet":"1000.01","roomName":"big"}`, http.StatusUnprocessableEntity, domain.KindInsufficientFunds},
		{"room taken", http.MethodPost, "/v1/matches", `{"accountId":2,"bet":"1","roomName":"arena"}`, http.StatusConflict, domain.KindConflict},
		{"negative bet", http.MethodPost, "/v1/matches", `{"accountId":2,"bet":"-1","roomName":"neg"}`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"unknown room", http.MethodPost, "/v1/rooms/nowhere/join", `{"accountId":2}`, http.StatusNotFound, domain.KindNotFound},
		{"join own room", http.MethodPost, "/v1/rooms/arena/join", `{"accountId":1}`, http.StatusConflict, domain.KindConflict},
		{"unknown move", http.MethodPost, "/v1/rooms/arena/moves", `{"accountId":1,"move":"lizard"}`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"unknown match", http.MethodGet, "/v1/matches/42", "", http.StatusNotFound, domain.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, string(tc.code), decodeBody[dto.ErrorResponse](t, rec).Code)
		})
	}
}

type brokenGame struct{ Game }

func (brokenGame) ListOpenMatches(context.Context) ([]domain.OpenMatch, error) {
	return nil, errors.New("pq: connection reset by peer")
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := NewServer(nil, brokenGame{}, nil, nil).Router()
	rec := do(t, h, http.MethodGet, "/v1/matches/open", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[dto.ErrorResponse](t, rec)
	assert.Equal(t, "internal error", body.Error)
	assert.Equal(t, string(domain.KindInternal), body.Code)
}
