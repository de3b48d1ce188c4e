package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/metrics"
	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/repository/memstore"
	"github.com/onlinecourse/catalog/internal/service"
)

type stubCatalog struct {
	listParams service.ListParams
	listErr    error
	detailErr  error
	caller     auth.Identity
	mutateErr  error
}

func (s *stubCatalog) List(_ context.Context, p service.ListParams) ([]model.CatalogEntry, error) {
	s.listParams = p
	return nil, s.listErr
}

func (s *stubCatalog) Detail(_ context.Context, id int64) (*model.LectureDetail, error) {
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return &model.LectureDetail{ID: id, Title: "Java Basics"}, nil
}

func (s *stubCatalog) Create(_ context.Context, caller auth.Identity, req model.CreateLectureRequest) (*model.LectureView, error) {
	s.caller = caller
	if s.mutateErr != nil {
		return nil, s.mutateErr
	}
	return &model.LectureView{ID: 1, Title: req.Title, IsPrivate: true}, nil
}

func (s *stubCatalog) Update(_ context.Context, caller auth.Identity, id int64, req model.UpdateLectureRequest) (*model.LectureView, error) {
	s.caller = caller
	if s.mutateErr != nil {
		return nil, s.mutateErr
	}
	return &model.LectureView{ID: id, Title: req.Title}, nil
}

func (s *stubCatalog) Delete(_ context.Context, caller auth.Identity, _ int64) error {
	s.caller = caller
	return s.mutateErr
}

func (s *stubCatalog) Publish(_ context.Context, caller auth.Identity, _ int64) error {
	s.caller = caller
	return s.mutateErr
}

type stubAccounts struct{}

func (stubAccounts) AdminLogin(context.Context, model.LoginRequest) (*model.AccessToken, error) {
	return &model.AccessToken{Token: "t"}, nil
}

func (stubAccounts) StudentLogin(context.Context, model.LoginRequest) (*model.AccessToken, error) {
	return nil, model.ErrInvalidCredentials
}

func (stubAccounts) SignUp(context.Context, model.SignUpRequest) (*model.SignUpResponse, error) {
	return nil, model.ErrConflict
}

func (stubAccounts) Withdraw(context.Context, auth.Identity, int64) error {
	return model.ErrPermissionDenied
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRouter(catalog Catalog, accounts Accounts, tokens *auth.TokenManager, limiter *RateLimiter) http.Handler {
	log := quietLogger()
	reg := prometheus.NewRegistry()
	return NewRouter(RouterConfig{
		Lectures:       NewLectureHandler(catalog, log),
		Accounts:       NewAccountHandler(accounts, log),
		Tokens:         tokens,
		Limiter:        limiter,
		LoginLimit:     2,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
		Log:            log,
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestList_ParsesQuery(t *testing.T) {
	cat := &stubCatalog{}
	h := newTestRouter(cat, stubAccounts{}, auth.NewTokenManager("s", "catalog", time.Hour), nil)

	rec := do(t, h, http.MethodGet, "/lectures?title=Java&teacherName=Cho&category=Math&page=2&size=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body)
	}
	want := service.ListParams{Title: "Java", TeacherName: "Cho", Category: "Math", Page: 2, Size: 5}
	if cat.listParams != want {
		t.Fatalf("params = %+v, want %+v", cat.listParams, want)
	}

	do(t, h, http.MethodGet, "/lectures", "", nil)
	if cat.listParams.Page != 1 || cat.listParams.Size != 10 {
		t.Fatalf("defaults not applied: %+v", cat.listParams)
	}

	if rec := do(t, h, http.MethodGet, "/lectures?page=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric page status = %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: lecture 1", model.ErrNotFound), http.StatusNotFound},
		{model.ErrPermissionDenied, http.StatusForbidden},
		{fmt.Errorf("%w: page must be >= 1", model.ErrValidation), http.StatusBadRequest},
		{model.ErrConflict, http.StatusConflict},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestRouter(&stubCatalog{detailErr: tc.err}, stubAccounts{}, auth.NewTokenManager("s", "catalog", time.Hour), nil)
		rec := do(t, h, http.MethodGet, "/lectures/1", "", nil)
		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		var resp model.ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error == "" {
			t.Fatalf("expected error envelope, got %v", err)
		}
		if tc.want == http.StatusInternalServerError && resp.Error != "internal server error" {
			t.Fatalf("internal error leaked: %q", resp.Error)
		}
	}
}

func TestMutations_PassResolvedIdentity(t *testing.T) {
	tokens := auth.NewTokenManager("s", "catalog", time.Hour)
	adminToken, err := tokens.Issue(auth.AdminIdentity("admin1234"))
	if err != nil {
		t.Fatal(err)
	}
	cat := &stubCatalog{}
	h := newTestRouter(cat, stubAccounts{}, tokens, nil)

	rec := do(t, h, http.MethodPost, "/lectures", adminToken, model.CreateLectureRequest{Title: "t", Category: model.CategoryMath, TeacherID: 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	if cat.caller != auth.AdminIdentity("admin1234") {
		t.Fatalf("caller = %+v", cat.caller)
	}

	if rec := do(t, h, http.MethodDelete, "/lectures/1", "garbage", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if cat.caller != auth.Anonymous() {
		t.Fatalf("invalid token should resolve to anonymous, got %+v", cat.caller)
	}

	if rec := do(t, h, http.MethodPatch, "/lectures/1", adminToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("publish status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/lectures/x", adminToken, model.UpdateLectureRequest{Title: "t"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestCreate_RejectsMalformedBody(t *testing.T) {
	tokens := auth.NewTokenManager("s", "catalog", time.Hour)
	adminToken, err := tokens.Issue(auth.AdminIdentity("admin1234"))
	if err != nil {
		t.Fatal(err)
	}
	h := newTestRouter(&stubCatalog{}, stubAccounts{}, tokens, nil)

	req := httptest.NewRequest(http.MethodPost, "/lectures", strings.NewReader(`{"title":"t","bogus":1}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMutations_NonAdminForbiddenBeforeBodyIsRead(t *testing.T) {
	tokens := auth.NewTokenManager("s", "catalog", time.Hour)
	studentToken, err := tokens.Issue(auth.StudentIdentity("kim@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	cat := &stubCatalog{}
	h := newTestRouter(cat, stubAccounts{}, tokens, nil)

	for _, tc := range []struct {
		method, path, token string
	}{
		{http.MethodPost, "/lectures", ""},
		{http.MethodPost, "/lectures", studentToken},
		{http.MethodPut, "/lectures/1", ""},
		{http.MethodPut, "/lectures/x", studentToken},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{not json`))
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s as %q: status = %d, want 403", tc.method, tc.path, tc.token, rec.Code)
		}
	}
	if cat.caller != (auth.Identity{}) {
		t.Fatalf("service reached with caller %+v", cat.caller)
	}
}

func TestAccountRoutes(t *testing.T) {
	h := newTestRouter(&stubCatalog{}, stubAccounts{}, auth.NewTokenManager("s", "catalog", time.Hour), nil)

	if rec := do(t, h, http.MethodPost, "/admins/login", "", model.LoginRequest{LoginID: "a", Password: "b"}); rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/students/login", "", model.LoginRequest{LoginID: "a", Password: "b"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("student login status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/members/signup", "", model.SignUpRequest{Nickname: "a"}); rec.Code != http.StatusConflict {
		t.Fatalf("signup status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/members/3", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("withdraw status = %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&stubCatalog{}, stubAccounts{}, auth.NewTokenManager("s", "catalog", time.Hour), nil)

	if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	do(t, h, http.MethodGet, "/lectures", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `catalog_http_requests_total{method="GET",route="/lectures`) || !strings.Contains(body, `status="200"`) {
		t.Fatalf("request counter missing from:\n%s", body)
	}
}

// End to end through the real services and the in-memory store.
func TestRouter_LectureLifecycle(t *testing.T) {
	ctx := context.Background()
	log := quietLogger()
	store := memstore.New()
	tokens := auth.NewTokenManager("s", "catalog", time.Hour)
	accounts := service.NewAccountService(store, tokens, log)
	catalog := service.NewCatalogService(store, log, metrics.New(prometheus.NewRegistry()))

	if _, err := accounts.CreateAdmin(ctx, "admin1234", "password1"); err != nil {
		t.Fatal(err)
	}
	teacher, err := catalog.CreateTeacher(ctx, "Choo")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestRouter(catalog, accounts, tokens, nil)

	rec := do(t, h, http.MethodPost, "/admins/login", "", model.LoginRequest{LoginID: "admin1234", Password: "password1"})
	var tok model.AccessToken
	if err := json.NewDecoder(rec.Body).Decode(&tok); err != nil || tok.Token == "" {
		t.Fatalf("login failed: %d %v", rec.Code, err)
	}

	create := model.CreateLectureRequest{Title: "Java Basics", Price: 1000, Category: model.CategoryMath, TeacherID: teacher.ID}
	if rec := do(t, h, http.MethodPost, "/lectures", "", create); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous create status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/lectures", tok.Token, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	var created model.LectureView
	_ = json.NewDecoder(rec.Body).Decode(&created)

	path := fmt.Sprintf("/lectures/%d", created.ID)
	listed := func() []model.CatalogEntry {
		rec := do(t, h, http.MethodGet, "/lectures?title=Java", "", nil)
		var out []model.CatalogEntry
		_ = json.NewDecoder(rec.Body).Decode(&out)
		return out
	}

	if got := listed(); len(got) != 0 {
		t.Fatalf("draft listed: %+v", got)
	}
	if rec := do(t, h, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("draft detail status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPatch, path, tok.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("publish status = %d", rec.Code)
	}
	if got := listed(); len(got) != 1 || got[0].TeacherName != "Choo" {
		t.Fatalf("published listing = %+v", got)
	}
	if rec := do(t, h, http.MethodDelete, path, tok.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, path, tok.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted detail status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, path, tok.Token, model.UpdateLectureRequest{Title: "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted update status = %d", rec.Code)
	}
	if got := listed(); len(got) != 0 {
		t.Fatalf("deleted lecture listed: %+v", got)
	}
}
