package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hemline/internal/config"
	"github.com/xxxsen/hemline/internal/filestore"
	"github.com/xxxsen/hemline/internal/middleware"
	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/adminkey"
	"github.com/xxxsen/hemline/internal/pkg/errcode"
	"github.com/xxxsen/hemline/internal/pkg/jwt"
	"github.com/xxxsen/hemline/internal/repo"
	"github.com/xxxsen/hemline/internal/service"
	"github.com/xxxsen/hemline/internal/testutil"
)

const adminKey = "operator-secret-key"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	engine   *gin.Engine
	clock    *testClock
	sender   *testutil.RecordingSender
	notifier *notify.Notifier
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := testutil.OpenTestDB(t)
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	opt := service.WithClock(clock.Now)
	sender := &testutil.RecordingSender{}
	notifier := notify.NewNotifier(sender, time.Second)

	users := repo.NewUserRepo(conn)
	credRepo := repo.NewCredentialRepo(conn)
	codec := jwt.NewCodec([]byte("handler-secret"), jwt.WithClock(clock.Now))
	tokens := service.NewTokenService(repo.NewTokenRepo(conn), codec, 15*time.Minute, 30*24*time.Hour, opt)
	creds := service.NewCredentialService(conn, credRepo, 15*time.Minute, opt)
	store := filestore.NewLocalStore(t.TempDir(), "http://example.com/api/v1/files")
	sessions := service.NewSessionService(conn, users, creds, tokens, notifier, nil, "https://app.example.com", opt)
	accounts := service.NewAccountService(conn, users, credRepo, tokens, notifier, store, 7*24*time.Hour, opt)
	profiles := service.NewUserService(users, store, notifier, 1024*1024, opt)
	waitlist := service.NewWaitlistService(repo.NewWaitlistRepo(conn), notifier, opt)
	clientRepo := repo.NewClientRepo(conn)
	galleryRepo := repo.NewGalleryRepo(conn)
	folderRepo := repo.NewFolderRepo(conn)
	orders := service.NewOrderService(conn, repo.NewOrderRepo(conn), clientRepo, opt)
	clients := service.NewClientService(conn, clientRepo, orders, opt)
	gallery := service.NewGalleryService(conn, galleryRepo, folderRepo, store, 1024*1024, opt)
	folders := service.NewFolderService(conn, folderRepo, galleryRepo, users, notifier, "https://app.example.com", opt)

	hash, err := adminkey.Hash(adminKey)
	require.NoError(t, err)
	cookie := NewRefreshCookie(config.CookieConfig{Name: "refresh_token", Path: "/api/v1/auth", SameSite: "strict"}, tokens.RefreshTTL())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Auth:          NewAuthHandler(sessions, cookie),
		Users:         NewUserHandler(profiles),
		Accounts:      NewAccountHandler(accounts, cookie),
		Waitlist:      NewWaitlistHandler(waitlist),
		Files:         NewFileHandler(store),
		Clients:       NewClientHandler(clients, orders),
		Orders:        NewOrderHandler(orders),
		Gallery:       NewGalleryHandler(gallery),
		Folders:       NewFolderHandler(folders),
		Health:        NewHealthHandler(conn),
		Authenticator: sessions,
		AdminKeyHash:  hash,
	})
	return &testServer{engine: engine, clock: clock, sender: sender, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

// login runs the magic link flow and returns the verify response.
func (s *testServer) login(t *testing.T, email string) (SessionResponse, *http.Cookie) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/request_magic_link", gin.H{"email": email}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.notifier.Wait()
	msgs := s.sender.ByTag(notify.KindLoginCredential)
	require.NotEmpty(t, msgs)
	text := msgs[len(msgs)-1].Text
	idx := strings.Index(text, "token=")
	require.Greater(t, idx, 0)
	token := text[idx+len("token="):]
	token = token[:strings.IndexAny(token, ")\n ")]

	w = s.do(t, http.MethodGet, "/api/v1/auth/verify?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session SessionResponse
	decode(t, w, &session)
	return session, refreshCookie(w)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLoginFlowSetsRefreshCookie(t *testing.T) {
	s := newTestServer(t)
	session, cookie := s.login(t, "tailor@example.com")
	require.NotEmpty(t, session.AccessToken)
	require.NotNil(t, session.User)
	require.Equal(t, "tailor@example.com", session.User.Email)
	require.False(t, session.ToBeDeleted)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/api/v1/auth", cookie.Path)
	require.Equal(t, 30*24*60*60, cookie.MaxAge)

	w := s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestMagicLinkValidation(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/request_magic_link", gin.H{"email": "nope"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, errcode.ErrInvalid, decode(t, w, nil).Code)
}

func TestVerifyCodeStatuses(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/verify_code", gin.H{"code": ""}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/verify_code", gin.H{"code": "000000"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var flag expiredFlag
	env := decode(t, w, &flag)
	require.Equal(t, errcode.ErrInvalidCredential, env.Code)
	require.False(t, flag.Expired)

	w = s.do(t, http.MethodPost, "/api/v1/auth/request_magic_link", gin.H{"email": "a@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.notifier.Wait()
	text := s.sender.ByTag(notify.KindLoginCredential)[0].Text
	code := text[strings.Index(text, "**")+2:]
	code = code[:6]

	s.clock.Advance(16 * time.Minute)
	w = s.do(t, http.MethodPost, "/api/v1/auth/verify_code", gin.H{"code": code}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	env = decode(t, w, &flag)
	require.Equal(t, errcode.ErrExpiredCredential, env.Code)
	require.True(t, flag.Expired)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, errcode.ErrUnauthorized, decode(t, w, nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, bearer("not-a-token"))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	session, _ := s.login(t, "a@example.com")
	s.clock.Advance(15 * time.Minute)
	w = s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var flag expiredFlag
	decode(t, w, &flag)
	require.True(t, flag.Expired)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	session, cookie := s.login(t, "a@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed SessionResponse
	decode(t, w, &refreshed)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Empty(t, refreshed.RefreshToken)

	w = s.do(t, http.MethodDelete, "/api/v1/auth/logout", nil, bearer(refreshed.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared)
	require.Less(t, cleared.MaxAge, 0)

	w = s.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, nil, cookie)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, errcode.ErrRevokedToken, decode(t, w, nil).Code)
	require.NotNil(t, refreshCookie(w))

	w = s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeletionLifecycle(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/account/deletion", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	gated, cookie := s.login(t, "a@example.com")
	require.True(t, gated.ToBeDeleted)
	require.Nil(t, gated.User)
	require.Empty(t, gated.RefreshToken)
	require.NotNil(t, gated.DeletionRequestedAt)
	require.NotNil(t, cookie)
	require.Less(t, cookie.MaxAge, 0)

	name := "Ada"
	w = s.do(t, http.MethodPatch, "/api/v1/users/profile", service.ProfileUpdate{FirstName: &name}, bearer(gated.AccessToken))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/account/deletion", nil, bearer(gated.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var restored SessionResponse
	decode(t, w, &restored)
	require.False(t, restored.ToBeDeleted)
	require.NotEmpty(t, restored.RefreshToken)
	require.NotNil(t, refreshCookie(w))

	w = s.do(t, http.MethodDelete, "/api/v1/account/deletion", nil, bearer(restored.AccessToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminSweep(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")
	w := s.do(t, http.MethodPost, "/api/v1/account/deletion", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/deletions/sweep", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/admin/deletions/sweep", nil, map[string]string{middleware.AdminKeyHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	s.clock.Advance(7*24*time.Hour + time.Minute)
	w = s.do(t, http.MethodPost, "/api/v1/admin/deletions/sweep", nil, map[string]string{middleware.AdminKeyHeader: adminKey})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Deleted int `json:"deleted"`
	}
	decode(t, w, &out)
	require.Equal(t, 1, out.Deleted)
}

func TestUpdateProfileAndImage(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")

	yes := true
	business := "Ada Atelier"
	w := s.do(t, http.MethodPut, "/api/v1/users/profile", service.ProfileUpdate{BusinessName: &business, HasOnboarded: &yes}, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.notifier.Wait()
	require.Len(t, s.sender.ByTag(notify.KindWelcomeMessage), 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "logo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/business_image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user struct {
		BusinessImage string `json:"business_image"`
		BusinessName  string `json:"business_name"`
	}
	decode(t, rec, &user)
	require.Equal(t, "Ada Atelier", user.BusinessName)
	require.True(t, strings.HasPrefix(user.BusinessImage, "http://example.com/api/v1/files/"))

	key := strings.TrimPrefix(user.BusinessImage, "http://example.com/api/v1/files/")
	w = s.do(t, http.MethodGet, "/api/v1/files/"+key, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = s.do(t, http.MethodGet, "/api/v1/files/missing.png", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaitlist(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/waitlist", gin.H{"email": "w@example.com"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/waitlist", gin.H{"email": "W@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Message string `json:"message"`
	}
	decode(t, w, &out)
	require.Equal(t, "already on the waitlist", out.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/request_magic_link", gin.H{"email": "m@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "hemline_auth_events_total")
}

func TestFormatUploadLimit(t *testing.T) {
	require.Equal(t, "5MB", formatUploadLimit(5*1024*1024))
	require.Equal(t, "512KB", formatUploadLimit(512*1024))
	require.Equal(t, "10B", formatUploadLimit(10))
	require.Equal(t, "0KB", formatUploadLimit(0))
}
