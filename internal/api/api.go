// Package api exposes the debate service over HTTP JSON and a websocket
// event stream.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nucleus-Lab/daocouncil/internal/auth"
	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/debate"
)

// maxBodySize caps HTTP request bodies on write endpoints.
const maxBodySize = 64 * 1024 // 64KB

type API struct {
	svc  *debate.Service
	auth *auth.Auth
}

func New(svc *debate.Service, a *auth.Auth) *API {
	return &API{svc: svc, auth: a}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Users
	mux.HandleFunc("POST /api/user", a.handleRegisterUser)
	mux.HandleFunc("GET /api/user/{address}", a.handleGetUser)

	// Debates
	mux.HandleFunc("POST /api/debate", a.handleCreateDebate)
	mux.HandleFunc("GET /api/debate/{id}", a.handleGetDebate)
	mux.HandleFunc("POST /api/debate/{id}/message", a.handlePostMessage)
	mux.HandleFunc("GET /api/debate/{id}/messages", a.handleGetMessages)
	mux.HandleFunc("GET /api/debate/{id}/jurors", a.handleGetJurorResults)
	mux.HandleFunc("GET /api/debate/{id}/funding", a.handleGetFunding)
	mux.HandleFunc("GET /api/debate/{id}/settlement", a.handleGetSettlement)

	// Real-time event stream
	mux.Handle("GET /ws/{id}", a.websocketHandler())
}

// --- Users ---

func (a *API) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address  string `json:"address"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	req.Username = strings.TrimSpace(req.Username)

	user, err := a.svc.RegisterUser(req.Address, req.Username)
	if err != nil {
		a.writeError(w, "registering user", err)
		return
	}
	token, err := a.auth.GenerateToken(user.Address, user.Username)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.GetUser(r.PathValue("address"))
	if err != nil {
		a.writeError(w, "fetching user", err)
		return
	}
	jsonResp(w, http.StatusOK, user)
}

// --- Debates ---

func (a *API) handleCreateDebate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Topic            string   `json:"topic"`
		Sides            []string `json:"sides"`
		JurorPersonas    []string `json:"juror_personas"`
		Funding          string   `json:"funding"`
		Action           string   `json:"action"`
		CreatorAddress   string   `json:"creator_address"`
		MessageThreshold int      `json:"message_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.CreatorAddress == "" {
		if claims := a.auth.ExtractClaims(r); claims != nil {
			req.CreatorAddress = claims.Address
		}
	}

	funding := decimal.Zero
	if req.Funding != "" {
		var err error
		funding, err = decimal.NewFromString(req.Funding)
		if err != nil {
			jsonError(w, "funding must be a decimal ETH amount", http.StatusBadRequest)
			return
		}
	}

	out, err := a.svc.CreateDebate(r.Context(), debate.CreateDebateInput{
		Topic:            req.Topic,
		Sides:            req.Sides,
		JurorPersonas:    req.JurorPersonas,
		Funding:          funding,
		Action:           req.Action,
		CreatorAddress:   req.CreatorAddress,
		MessageThreshold: req.MessageThreshold,
	})
	if err != nil {
		a.writeError(w, "creating debate", err)
		return
	}
	jsonResp(w, http.StatusCreated, out)
}

func (a *API) handleGetDebate(w http.ResponseWriter, r *http.Request) {
	info, err := a.svc.GetDebate(r.PathValue("id"))
	if err != nil {
		a.writeError(w, "fetching debate", err)
		return
	}
	jsonResp(w, http.StatusOK, info)
}

func (a *API) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		AuthorAddress string `json:"author_address"`
		AuthorName    string `json:"author_name"`
		Body          string `json:"body"`
		Stance        *int   `json:"stance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if claims := a.auth.ExtractClaims(r); claims != nil {
		req.AuthorAddress = claims.Address
		if req.AuthorName == "" {
			req.AuthorName = claims.Username
		}
	}

	msg, err := a.svc.PostMessage(r.Context(), debate.PostMessageInput{
		DebateID:      r.PathValue("id"),
		AuthorAddress: req.AuthorAddress,
		AuthorName:    req.AuthorName,
		Body:          req.Body,
		Stance:        req.Stance,
	})
	if err != nil {
		a.writeError(w, "posting message", err)
		return
	}
	// Evaluation and settlement run in the background; the ack only covers
	// persistence.
	jsonResp(w, http.StatusAccepted, msg)
}

func (a *API) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.svc.GetMessages(r.PathValue("id"))
	if err != nil {
		a.writeError(w, "fetching messages", err)
		return
	}
	if messages == nil {
		messages = []db.Message{}
	}
	jsonResp(w, http.StatusOK, messages)
}

func (a *API) handleGetJurorResults(w http.ResponseWriter, r *http.Request) {
	results, err := a.svc.GetJurorResults(r.PathValue("id"))
	if err != nil {
		a.writeError(w, "fetching juror results", err)
		return
	}
	if results == nil {
		results = [][]db.JurorResult{}
	}
	jsonResp(w, http.StatusOK, results)
}

func (a *API) handleGetFunding(w http.ResponseWriter, r *http.Request) {
	status, err := a.svc.GetFundingStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, "checking funding", err)
		return
	}
	jsonResp(w, http.StatusOK, status)
}

func (a *API) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	result, err := a.svc.GetSettlement(r.PathValue("id"))
	if err != nil {
		a.writeError(w, "fetching settlement", err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

// --- Helpers ---

func (a *API) writeError(w http.ResponseWriter, op string, err error) {
	var verr *debate.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
	case errors.Is(err, db.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		slog.Error(op, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonResp(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
