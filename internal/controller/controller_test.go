package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "chat_session"

var alice = &entity.Identity{Id: "alice-sub", Email: "alice@example.com", Name: "Alice"}

type stubVerifier struct{}

func (stubVerifier) VerifyToken(ctx context.Context, token string) (*entity.Identity, string, error) {
	if token != "good" {
		return nil, "", apperror.Unauthenticated("invalid session")
	}
	return alice, "jti-1", nil
}

func newTestApp() *fiber.App {
	log := logger.NewNopLogger()
	return fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(log)})
}

func authMiddleware() fiber.Handler {
	return serverutils.JwtMiddleware(stubVerifier{}, testCookie)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

type fakeChatService struct {
	service.IChatService
	chats     map[uuid.UUID]*dto.ChatDetail
	sendErr   error
	lastText  string
	lastChat  *uuid.UUID
	renamedTo string
	deleted   []uuid.UUID
}

func newFakeChatService() *fakeChatService {
	return &fakeChatService{chats: map[uuid.UUID]*dto.ChatDetail{}}
}

func (f *fakeChatService) SendMessage(ctx context.Context, identity *entity.Identity, chatId *uuid.UUID, text string) (*dto.SendMessageResponse, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.lastText, f.lastChat = text, chatId
	id := uuid.New()
	if chatId != nil {
		id = *chatId
	}
	return &dto.SendMessageResponse{Response: "Hi there", ChatId: id}, nil
}

func (f *fakeChatService) CreateChat(ctx context.Context, ownerId string, title string) (uuid.UUID, error) {
	id := uuid.New()
	f.chats[id] = &dto.ChatDetail{Id: id, Title: "New Chat", Messages: []dto.ChatMessageResponse{}}
	return id, nil
}

func (f *fakeChatService) ListChats(ctx context.Context, ownerId string) ([]dto.ChatSummary, error) {
	out := []dto.ChatSummary{}
	for _, c := range f.chats {
		out = append(out, dto.ChatSummary{Id: c.Id, Title: c.Title})
	}
	return out, nil
}

func (f *fakeChatService) GetChat(ctx context.Context, ownerId string, chatId uuid.UUID) (*dto.ChatDetail, error) {
	c, ok := f.chats[chatId]
	if !ok {
		return nil, apperror.NotFound("chat not found")
	}
	return c, nil
}

func (f *fakeChatService) RenameChat(ctx context.Context, ownerId string, chatId uuid.UUID, title string) error {
	if _, ok := f.chats[chatId]; !ok {
		return apperror.NotFound("chat not found")
	}
	f.renamedTo = title
	return nil
}

func (f *fakeChatService) DeleteChat(ctx context.Context, ownerId string, chatId uuid.UUID) error {
	f.deleted = append(f.deleted, chatId)
	return nil
}

func newChatApp(svc service.IChatService) *fiber.App {
	app := newTestApp()
	NewChatController(svc, authMiddleware()).RegisterRoutes(app, app.Group("/api"))
	return app
}

func TestSendMessageEndpoint(t *testing.T) {
	svc := newFakeChatService()
	app := newChatApp(svc)

	resp, body := doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "Hello"}, "good")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hi there", body["response"])
	assert.NotEmpty(t, body["chatId"])
	assert.Equal(t, "Hello", svc.lastText)
	assert.Nil(t, svc.lastChat)

	existing := uuid.New()
	_, body = doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "again", "chatId": existing.String()}, "good")
	assert.Equal(t, existing.String(), body["chatId"])

	resp, body = doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "Hello"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "error", body["status"])

	resp, body = doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "   "}, "good")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "message is required", body["message"])

	svc.sendErr = apperror.Provider(assert.AnError)
	resp, body = doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "Hello"}, "good")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "completion request failed", body["message"])
	assert.NotContains(t, body["message"], assert.AnError.Error())

	svc.sendErr = apperror.Store(assert.AnError)
	resp, body = doJSON(t, app, http.MethodPost, "/chat", map[string]string{"message": "Hello"}, "good")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "storage unavailable", body["message"])
}

func TestChatManagementEndpoints(t *testing.T) {
	svc := newFakeChatService()
	app := newChatApp(svc)

	resp, body := doJSON(t, app, http.MethodPost, "/api/chat/new", nil, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	chatId := body["chatId"].(string)

	resp, body = doJSON(t, app, http.MethodGet, "/api/chat/history", nil, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chats := body["chats"].([]interface{})
	require.Len(t, chats, 1)
	assert.Equal(t, chatId, chats[0].(map[string]interface{})["id"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/chat/"+chatId, nil, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chat := body["chat"].(map[string]interface{})
	assert.Equal(t, "New Chat", chat["title"])
	assert.Empty(t, chat["messages"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/chat/"+uuid.NewString(), nil, "good")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/chat/not-a-uuid", nil, "good")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPut, "/api/chat/"+chatId+"/rename", map[string]string{"title": "Trip plans"}, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Trip plans", svc.renamedTo)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/chat/"+chatId+"/rename", map[string]string{"title": ""}, "good")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/chat/"+chatId+"/delete", nil, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Chat deleted successfully", body["message"])
	assert.Equal(t, []uuid.UUID{uuid.MustParse(chatId)}, svc.deleted)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/chat/history", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

type fakeAuthService struct {
	service.IAuthService
	loggedOut []string
}

func (f *fakeAuthService) AuthenticateGoogle(ctx context.Context, idToken string) (*entity.Identity, *service.SessionToken, error) {
	if idToken != "google-id-token" {
		return nil, nil, apperror.Unauthenticated("invalid id token")
	}
	return alice, &service.SessionToken{Token: "good", ID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakeOAuthService struct{}

func (fakeOAuthService) NewState() string { return "state-1" }

func (fakeOAuthService) GetLoginURL(provider, state string) (string, error) {
	if provider != "google" {
		return "", apperror.NotFound("unsupported provider")
	}
	return "https://accounts.example.com/auth?state=" + state, nil
}

func (fakeOAuthService) HandleCallback(ctx context.Context, provider, code string) (*entity.Identity, *service.SessionToken, error) {
	return alice, &service.SessionToken{Token: "good", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newAuthApp(auth *fakeAuthService) *fiber.App {
	app := newTestApp()
	NewAuthController(AuthControllerConfig{CookieName: testCookie, ClientURL: "http://localhost:5173"},
		auth, fakeOAuthService{}, authMiddleware(), logger.NewNopLogger()).RegisterRoutes(app.Group("/api"))
	return app
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGoogleLoginSetsSessionCookie(t *testing.T) {
	app := newAuthApp(&fakeAuthService{})

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/google", map[string]string{"id_token": "google-id-token"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "alice-sub", body["user"].(map[string]interface{})["id"])
	assert.Equal(t, "good", body["token"])

	cookie := findCookie(resp, testCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "good", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/google", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/google", map[string]string{"id_token": "forged"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCurrentUserAndLogout(t *testing.T) {
	auth := &fakeAuthService{}
	app := newAuthApp(auth)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "good"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/auth/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "user not authenticated", body["message"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/auth/logout", nil, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully logged out", body["message"])
	assert.Equal(t, []string{"good"}, auth.loggedOut)
}

func TestOAuthRedirectFlow(t *testing.T) {
	app := newAuthApp(&fakeAuthService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "state=state-1")
	require.NotNil(t, findCookie(resp, oauthStateCookie))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderLocation))
	require.NotNil(t, findCookie(resp, testCookie))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/github/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type fakeUploadService struct {
	stored   map[string][]byte
	question string
}

func (f *fakeUploadService) StoreFile(ctx context.Context, data []byte, name string) (string, error) {
	if name == "run.exe" {
		return "", apperror.InvalidArgument("file type not allowed")
	}
	f.stored[name] = data
	return "abcd1234_" + name, nil
}

func (f *fakeUploadService) Analyze(ctx context.Context, storedName, question string) (string, error) {
	if storedName == "doc.pdf" {
		return "", apperror.UnsupportedMedia("text extraction for .pdf files is not available")
	}
	f.question = question
	return "summary of " + storedName, nil
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write([]byte(content))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer good")
	return req
}

func TestUploadAndAnalyzeEndpoints(t *testing.T) {
	svc := &fakeUploadService{stored: map[string][]byte{}}
	app := newTestApp()
	NewUploadController(svc, authMiddleware()).RegisterRoutes(app)

	resp, err := app.Test(multipartUpload(t, "notes.txt", "hello"), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded dto.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "File uploaded successfully", uploaded.Message)
	assert.Equal(t, "abcd1234_notes.txt", uploaded.Filename)
	assert.Equal(t, []byte("hello"), svc.stored["notes.txt"])

	resp, err = app.Test(multipartUpload(t, "run.exe", "MZ"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/analyze/abcd1234_notes.txt", map[string]string{"question": "Key points?"}, "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "summary of abcd1234_notes.txt", body["analysis"])
	assert.Equal(t, "Key points?", svc.question)

	resp, _ = doJSON(t, app, http.MethodPost, "/analyze/abcd1234_notes.txt", nil, "good")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, svc.question)

	resp, _ = doJSON(t, app, http.MethodPost, "/analyze/doc.pdf", nil, "good")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/analyze/abcd1234_notes.txt", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
