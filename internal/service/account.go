package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/repository"
)

const minPasswordLength = 8

// AccountService issues access tokens and manages student and admin accounts.
type AccountService struct {
	store  repository.Store
	tokens *auth.TokenManager
	log    logrus.FieldLogger
}

// NewAccountService constructs an AccountService.
func NewAccountService(store repository.Store, tokens *auth.TokenManager, log logrus.FieldLogger) *AccountService {
	return &AccountService{store: store, tokens: tokens, log: log}
}

// AdminLogin exchanges admin credentials for an access token.
func (s *AccountService) AdminLogin(ctx context.Context, req model.LoginRequest) (*model.AccessToken, error) {
	admin, err := s.store.FindAdmin(ctx, strings.TrimSpace(req.LoginID))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.ComparePassword(admin.PasswordHash, req.Password) {
		return nil, model.ErrInvalidCredentials
	}
	return s.issue(auth.AdminIdentity(admin.LoginID))
}

// StudentLogin exchanges student credentials for an access token. Withdrawn
// students cannot log in.
func (s *AccountService) StudentLogin(ctx context.Context, req model.LoginRequest) (*model.AccessToken, error) {
	st, err := s.store.FindStudentByEmail(ctx, normalizeEmail(req.LoginID))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if st.Deleted || !auth.ComparePassword(st.PasswordHash, req.Password) {
		return nil, model.ErrInvalidCredentials
	}
	return s.issue(auth.StudentIdentity(st.Email))
}

// SignUp registers a new student.
func (s *AccountService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.SignUpResponse, error) {
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = normalizeEmail(req.Email)
	if req.Nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", model.ErrValidation)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: email is not a valid address", model.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	st := &model.Student{Nickname: req.Nickname, Email: req.Email, PasswordHash: hash}
	if err := s.store.CreateStudent(ctx, st); err != nil {
		return nil, err
	}

	s.log.WithField("student_id", st.ID).Info("student signed up")
	return &model.SignUpResponse{ID: st.ID, Nickname: st.Nickname, Email: st.Email}, nil
}

// Withdraw soft-deletes a student. Students may only withdraw themselves;
// admins may withdraw anyone.
func (s *AccountService) Withdraw(ctx context.Context, caller auth.Identity, studentID int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		switch caller.Kind {
		case auth.KindAdmin:
			if _, err := auth.RequireAdmin(ctx, caller, tx); err != nil {
				return err
			}
		case auth.KindStudent:
			self, err := tx.FindStudentByEmail(ctx, caller.Subject)
			if errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("%w: unknown student", model.ErrPermissionDenied)
			}
			if err != nil {
				return err
			}
			if self.Deleted || self.ID != studentID {
				return fmt.Errorf("%w: students may only withdraw themselves", model.ErrPermissionDenied)
			}
		default:
			return fmt.Errorf("%w: authentication required", model.ErrPermissionDenied)
		}

		st, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if st.Deleted {
			return fmt.Errorf("%w: student %d", model.ErrNotFound, studentID)
		}
		st.Deleted = true
		return tx.UpdateStudent(ctx, st)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"student_id": studentID, "by": caller.Kind.String()}).Info("student withdrawn")
	return nil
}

// CreateAdmin registers an admin account. It is an operator task run from the CLI.
func (s *AccountService) CreateAdmin(ctx context.Context, loginID, password string) (*model.Admin, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" {
		return nil, fmt.Errorf("%w: login id is required", model.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{LoginID: loginID, PasswordHash: hash}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *AccountService) issue(id auth.Identity) (*model.AccessToken, error) {
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.AccessToken{Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
