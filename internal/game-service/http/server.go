package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/dto"
	"github.com/radieske/rps-wager-platform/internal/game-service/engine"
)

// Game define as operações do core usadas pelos handlers HTTP
type Game interface {
	RegisterAccount(ctx context.Context, displayName string) (int64, error)
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error)
	PeerTransfer(ctx context.Context, from, to int64, amount decimal.Decimal) error

	CreateMatch(ctx context.Context, accountID int64, bet decimal.Decimal, roomName string) (int64, error)
	ListOpenMatches(ctx context.Context) ([]domain.OpenMatch, error)
	GetMatch(ctx context.Context, matchID int64) (*domain.Match, error)
	JoinMatch(ctx context.Context, roomName string, accountID int64) error
	MakeMove(ctx context.Context, roomName string, accountID int64, move domain.Move) (engine.Result, error)
}

// Server expõe o core via REST; a rota de eventos é servida pelo handler WebSocket recebido
type Server struct {
	log      *zap.Logger
	game     Game
	events   http.Handler
	origins  []string
	validate *validator.Validate
}

func NewServer(log *zap.Logger, game Game, eventsHandler http.Handler, allowedOrigins []string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{log: log, game: game, events: eventsHandler, origins: allowedOrigins, validate: validator.New()}
}

// Router retorna o roteador com as rotas /v1
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", s.registerAccount)
		r.Get("/accounts/{id}/balance", s.getBalance)
		r.Get("/accounts/{id}/ledger", s.listLedger)
		r.Post("/transfers", s.transfer)

		r.Post("/matches", s.createMatch)
		r.Get("/matches/open", s.listOpen)
		r.Get("/matches/{id}", s.getMatch)

		r.Post("/rooms/{room}/join", s.joinMatch)
		r.Post("/rooms/{room}/moves", s.makeMove)
		if s.events != nil {
			r.Get("/rooms/{room}/events", s.events.ServeHTTP)
		}
	})
	return r
}

func (s *Server) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.game.RegisterAccount(r.Context(), req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.AccountResponse{AccountID: id})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bal, err := s.game.GetBalance(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: id, Balance: bal})
}

// listLedger aceita ?limit=; ausente usa o padrão do ledger
func (s *Server) listLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a non-negative integer", Code: string(domain.KindInvalidArgument)})
			return
		}
		limit = n
	}
	entries, err := s.game.ListLedgerEntries(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewLedgerEntries(entries))
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.game.PeerTransfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.game.CreateMatch(r.Context(), req.AccountID, req.Bet, req.RoomName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MatchCreatedResponse{MatchID: id})
}

func (s *Server) listOpen(w http.ResponseWriter, r *http.Request) {
	open, err := s.game.ListOpenMatches(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewOpenMatches(open))
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.game.GetMatch(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewMatch(m))
}

func (s *Server) joinMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinMatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.game.JoinMatch(r.Context(), chi.URLParam(r, "room"), req.AccountID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) makeMove(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	move, err := domain.ParseMove(req.Move)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.game.MakeMove(r.Context(), chi.URLParam(r, "room"), req.AccountID, move)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MoveResponse{Status: string(res.Status), WinnerID: res.WinnerID})
}

// decode lê o JSON e roda as tags validate; em falha já responde 400
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json", Code: string(domain.KindInvalidArgument)})
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		resp := dto.ErrorResponse{Error: "invalid payload", Code: string(domain.KindInvalidArgument)}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// writeError traduz o tipo do erro do domínio em status HTTP
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindInvalidArgument:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindInsufficientFunds:
		status = http.StatusUnprocessableEntity
	}

	msg := err.Error()
	if kind == domain.KindInternal {
		s.log.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: string(kind)})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id must be a positive integer", Code: string(domain.KindInvalidArgument)})
		return 0, false
	}
	return id, true
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
