package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avvvet/draught-services/internal/auth"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth

	games    *service.GameService
	balances *service.BalanceService
	users    *service.UserService

	port string
}

func NewHandler(games *service.GameService, balances *service.BalanceService, users *service.UserService, port string) *Handler {
	return &Handler{games: games, balances: balances, users: users, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) ok(w http.ResponseWriter, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: http.StatusOK, Data: data})
}

// fail writes err with the status its sentinel maps to. Internal details are logged, not returned.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorf("Error %s %s: %s", r.Method, r.URL.Path, err)
		msg = "something went wrong"
	}
	h.CreateResponse(w, Response{Message: models.ErrorCode(err), Code: status, Error: msg})
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.CreateResponse(w, Response{Message: models.ErrorCode(models.ErrValidation), Code: http.StatusBadRequest, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrCannotJoinOwnGame):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, models.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON rejects unknown fields so only the documented request shapes are accepted.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

func gameIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid game id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, "game service is running at port "+h.port, nil)
}
