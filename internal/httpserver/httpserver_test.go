package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wingx/dashboard/internal/assets"
	authsvc "github.com/wingx/dashboard/internal/auth"
	"github.com/wingx/dashboard/internal/catalog"
	"github.com/wingx/dashboard/internal/db/dbtest"
	"github.com/wingx/dashboard/internal/livefeed"
	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/repo"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/tokens"
	"github.com/wingx/dashboard/internal/validate"
	"github.com/wingx/dashboard/internal/verification"
)

const (
	testPassword   = "secreto"
	imageKitSecret = "private_test_key"
	csrfToken      = "test-csrf-token"
)

type testEnv struct {
	e        *echo.Echo
	db       *gorm.DB
	repo     *repo.GormRepo
	auth     *authsvc.AuthService
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := dbtest.InitTestDB(t)
	r := &repo.GormRepo{DB: gdb}
	hub := livefeed.NewHub(r, nil)
	sessions := session.NewManager(hub, time.Minute, nil)
	t.Cleanup(func() {
		sessions.Close()
		hub.Close()
	})

	svc := &authsvc.AuthService{
		Repo:          r,
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	v := validate.MustNew()

	e := echo.New()
	e.Validator = v
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{
			Svc:       svc,
			Sessions:  sessions,
			Validator: v,
			ImageKit:  assets.NewAuthenticator(assets.NewClient(imageKitSecret, "public_test_key", "https://ik.imagekit.io/wingx"), time.Minute),
		},
		ShellHandler:        &ShellHTTP{},
		NotifyHandler:       &NotificationsHTTP{},
		EventsHandler:       &EventsHTTP{},
		VerificationHandler: &VerificationHTTP{Svc: &verification.Service{Store: r, Bus: hub}},
		StoreHandler:        &StoreHTTP{Svc: &catalog.Service{Store: r}},
		Auth: &authmw.SessionAuth{
			JWTSecret:     svc.AccessSecret,
			RefreshSecret: svc.RefreshSecret,
			Refresher:     svc,
			Sessions:      sessions,
		},
	})

	return &testEnv{e: e, db: gdb, repo: r, auth: svc, sessions: sessions}
}

type client struct {
	cookies []*http.Cookie
	sid     string
}

// signIn creates an account with role and returns its session cookies.
func (env *testEnv) signIn(t *testing.T, email, role string) client {
	t.Helper()
	ctx := context.Background()

	res, err := env.auth.Register(ctx, email, testPassword, "Ana")
	require.NoError(t, err)
	if role != models.RoleUser {
		require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", res.User.ID).Update("role", role).Error)
		res, err = env.auth.Login(ctx, email, testPassword)
		require.NoError(t, err)
	}
	return client{
		sid: res.SessionID,
		cookies: []*http.Cookie{
			{Name: tokens.AccessCookie, Value: res.AccessToken},
			{Name: tokens.RefreshCookie, Value: res.RefreshToken},
		},
	}
}

func (env *testEnv) do(method, path string, body any, cl client) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func insertPending(t *testing.T, env *testEnv, id string) {
	t.Helper()
	_, err := env.repo.InsertOrder(context.Background(), &models.Order{
		ID:         id,
		TotalPrice: decimal.RequireFromString("1250.50"),
		Customer:   models.Customer{Name: "María Pérez", Phone: "0414-555 1234"},
		PaymentProof: &models.PaymentProof{
			Bank:            "bdv",
			ReferenceNumber: "00123456",
		},
		Status:    models.StatusPendingVerification,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health/live", nil, client{})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/health/ready", nil, client{})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "ana@wingx.com", "password": "123", "name": "Ana"}, client{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "La contraseña debe tener al menos 6 caracteres")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "ana@wingx.com", "password": testPassword, "name": "Ana"}, client{})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Values("Set-Cookie")[0], tokens.AccessCookie+"=")

	rec = env.do(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "ana@wingx.com", "password": testPassword}, client{})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "El correo ya está registrado.")

	rec = env.do(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "ana@wingx.com", "password": "incorrecta"}, client{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contraseña incorrecta.")

	rec = env.do(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "nadie@wingx.com", "password": testPassword}, client{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuario no encontrado.")

	rec = env.do(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "ana@wingx.com", "password": testPassword}, client{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]map[string]string](t, rec)
	assert.Equal(t, models.RoleUser, body["user"]["role"])
}

func TestGoogle_PopupErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/google", map[string]string{"error_code": "auth/popup-closed-by-user"}, client{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ventana de Google cerrada. Intenta de nuevo.")

	rec = env.do(http.MethodPost, "/api/v1/auth/google", map[string]string{"id_token": "x"}, client{})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ocurrió un error al iniciar sesión con Google.")
}

func TestShell(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/shell?path=/verificacion-pagos", nil, client{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/login", decode[map[string]any](t, rec)["redirect"])

	user := env.signIn(t, "user@wingx.com", models.RoleUser)
	rec = env.do(http.MethodGet, "/api/v1/shell?path=/verificacion-pagos", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[map[string]any](t, rec)
	assert.Equal(t, "/", m["redirect"])
	assert.Nil(t, m["permission_prompt"])

	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)
	rec = env.do(http.MethodGet, "/api/v1/shell?path=/", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	m = decode[map[string]any](t, rec)
	assert.Equal(t, "Admin Panel", m["label"])
	assert.Nil(t, m["permission_prompt"], "browser permission not reported yet")

	rec = env.do(http.MethodPost, "/api/v1/notifications/permission", map[string]string{"permission": "default"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[map[string]any](t, rec)["permission_prompt"])

	// offered once per session
	rec = env.do(http.MethodGet, "/api/v1/shell?path=/", nil, admin)
	assert.Nil(t, decode[map[string]any](t, rec)["permission_prompt"])
}

func TestNotifications_Permission(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/notifications/permission", map[string]string{"permission": "granted"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[notificationsResponse](t, rec)
	assert.Equal(t, "granted", string(resp.Status.Permission))
	assert.Equal(t, "listening", resp.Status.State)

	rec = env.do(http.MethodPost, "/api/v1/notifications/permission", map[string]string{"permission": "maybe"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/notifications/clear", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_RejectsMissingHeader(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/clear", nil)
	req.Header.Set("Origin", "http://example.com")
	for _, ck := range admin.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerification_PlainUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	user := env.signIn(t, "user@wingx.com", models.RoleUser)

	rec := env.do(http.MethodGet, "/api/v1/verification/orders", nil, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/store/draft", nil, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func waitPending(t *testing.T, env *testEnv, cl client, want int) pendingResponse {
	t.Helper()
	var resp pendingResponse
	require.Eventually(t, func() bool {
		rec := env.do(http.MethodGet, "/api/v1/verification/orders", nil, cl)
		if rec.Code != http.StatusOK {
			return false
		}
		resp = decode[pendingResponse](t, rec)
		return !resp.Loading && len(resp.Orders) == want
	}, 2*time.Second, 20*time.Millisecond)
	return resp
}

func TestVerification_ApproveFlow(t *testing.T) {
	env := newTestEnv(t)
	insertPending(t, env, "abcdef1234567890")
	insertPending(t, env, "zzzzzz0000000000")
	store := env.signIn(t, "tienda@wingx.com", models.RoleStore)

	resp := waitPending(t, env, store, 2)
	assert.Equal(t, "Banco de Venezuela", resp.Orders[0].BankName)
	assert.Equal(t, "$1.250,50", resp.Orders[0].TotalLabel)

	rec := env.do(http.MethodGet, "/api/v1/verification/orders?q=00123", nil, store)
	assert.Len(t, decode[pendingResponse](t, rec).Orders, 2)
	rec = env.do(http.MethodGet, "/api/v1/verification/orders?q=zzz", nil, store)
	assert.Len(t, decode[pendingResponse](t, rec).Orders, 1)

	rec = env.do(http.MethodPost, "/api/v1/verification/orders/abcdef1234567890/approve", map[string]bool{"confirm": false}, store)
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)
	conf := decode[verification.Confirmation](t, rec)
	assert.Equal(t, "#ABCDEF12", conf.ShortID)
	assert.Equal(t, "María Pérez", conf.Customer)
	assert.Equal(t, "$1.250,50", conf.Amount)

	rec = env.do(http.MethodPost, "/api/v1/verification/orders/abcdef1234567890/approve", map[string]bool{"confirm": true}, store)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	handoff := res["whatsapp"].(map[string]any)
	assert.Equal(t, "584145551234", handoff["phone"])

	order, err := env.repo.GetOrder(context.Background(), "abcdef1234567890")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, order.Status)
	assert.NotNil(t, order.VerifiedAt)

	rec = env.do(http.MethodPost, "/api/v1/verification/orders/abcdef1234567890/approve", map[string]bool{"confirm": true}, store)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/verification/orders/missing/approve", map[string]bool{"confirm": true}, store)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	waitPending(t, env, store, 1)
}

func TestVerification_RejectDefaultsReason(t *testing.T) {
	env := newTestEnv(t)
	insertPending(t, env, "abcdef1234567890")
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)
	waitPending(t, env, admin, 1)

	rec := env.do(http.MethodGet, "/api/v1/verification/orders/abcdef1234567890/confirmation?action=reject", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Motivo del rechazo (opcional)", decode[verification.Confirmation](t, rec).InputLabel)

	rec = env.do(http.MethodPost, "/api/v1/verification/orders/abcdef1234567890/reject", map[string]any{"confirm": true, "reason": "  "}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	order, err := env.repo.GetOrder(context.Background(), "abcdef1234567890")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, order.Status)
	assert.Equal(t, verification.DefaultRejectionReason, order.RejectionReason)

	waitPending(t, env, admin, 0)
}

func TestVerification_FeedRetry(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)
	waitPending(t, env, admin, 0)

	rec := env.do(http.MethodPost, "/api/v1/verification/feed/retry", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStore_DraftAndPublish(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/v1/store/draft", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[draftResponse](t, rec)
	assert.Equal(t, catalog.GenderUnisex, d.Form.Gender)
	assert.Len(t, d.Categories, len(catalog.Categories))

	rec = env.do(http.MethodPost, "/api/v1/store/draft/publish", nil, admin)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/store/draft/category", map[string]string{"name": "Nada"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/store/draft/category", map[string]string{"name": "Camisas"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/v1/store/draft/subcategory", map[string]string{"name": "Franela"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/v1/store/draft/size", map[string]string{"size": "M"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/api/v1/store/draft", map[string]any{
		"name": "Franela básica", "description": "Algodón", "price": "15,50", "gender": "Mujer", "featured": true,
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	d = decode[draftResponse](t, rec)
	assert.Equal(t, []string{"Camisas", "Franela"}, d.Form.Categories)
	assert.Equal(t, []string{"M"}, d.Form.Sizes)
	assert.True(t, d.Form.Featured)

	rec = env.do(http.MethodPost, "/api/v1/store/draft/cover", map[string]string{"url": "https://ik.imagekit.io/x.jpg"}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/store/draft/publish", nil, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.Equal(t, catalog.RedirectAfterPublish, res["redirect"])

	rec = env.do(http.MethodGet, "/api/v1/store/draft", nil, admin)
	assert.Empty(t, decode[draftResponse](t, rec).Form.Name)

	rec = env.do(http.MethodGet, "/api/v1/store/products?page=1&size=10", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, list["meta"].(map[string]any)["total"])

	rec = env.do(http.MethodGet, "/api/v1/store/products/search?q=franela", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string]any](t, rec)["data"], 1)
}

func TestImageKitAuth(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/auth/imagekit", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[assets.AuthParams](t, rec)
	assert.NotEmpty(t, p.Token)
	assert.Greater(t, p.Expire, time.Now().Unix())
	assert.Len(t, p.Signature, 40)

	rec = env.do(http.MethodGet, "/api/auth/imagekit", nil, client{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsStream_EndsWithSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	for _, ck := range admin.cookies {
		req.AddCookie(ck)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.e.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		w, ok := env.sessions.Get(admin.sid)
		return ok && w.Streams() == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.sessions.End(admin.sid)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end with the session")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "event: pending_count\ndata: ")
}

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/v1/auth/me", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.sessions.Len())

	rec = env.do(http.MethodPost, "/api/v1/auth/logout", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.sessions.Len())

	_, err := env.auth.Refresh(context.Background(), admin.cookies[1].Value)
	assert.Error(t, err)

	// the access token is still unexpired but the session stays ended
	rec = env.do(http.MethodGet, "/api/v1/auth/me", nil, client{cookies: admin.cookies[:1]})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestRejectedRefresh_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "admin@wingx.com", models.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/v1/auth/me", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, env.sessions.Len())

	require.NoError(t, env.auth.LogOut(context.Background(), admin.cookies[1].Value))

	rec = env.do(http.MethodGet, "/api/v1/auth/me", nil, client{cookies: admin.cookies[1:]})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.sessions.Len())
}
