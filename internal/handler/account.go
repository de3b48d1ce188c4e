package handler

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/model"
)

// Accounts is the login and student account surface.
type Accounts interface {
	AdminLogin(ctx context.Context, req model.LoginRequest) (*model.AccessToken, error)
	StudentLogin(ctx context.Context, req model.LoginRequest) (*model.AccessToken, error)
	SignUp(ctx context.Context, req model.SignUpRequest) (*model.SignUpResponse, error)
	Withdraw(ctx context.Context, caller auth.Identity, studentID int64) error
}

// AccountHandler holds the login and /members handlers.
type AccountHandler struct {
	svc Accounts
	log logrus.FieldLogger
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc Accounts, log logrus.FieldLogger) *AccountHandler {
	return &AccountHandler{svc: svc, log: log}
}

// AdminLogin handles POST /admins/login
func (h *AccountHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.AdminLogin)
}

// StudentLogin handles POST /students/login
func (h *AccountHandler) StudentLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.StudentLogin)
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request, fn func(context.Context, model.LoginRequest) (*model.AccessToken, error)) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tok, err := fn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// SignUp handles POST /members/signup
func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	resp, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Withdraw handles DELETE /members/{id}
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if err := h.svc.Withdraw(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
