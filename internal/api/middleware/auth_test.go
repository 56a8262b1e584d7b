package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key"

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// generateTestToken генерирует JWT токен для тестов.
func generateTestToken(key *rsa.PrivateKey, claims rawClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	return token.SignedString(key)
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	// Кодируем N и E в base64url
	nB64 := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   nB64,
				"e":   eB64,
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// newTestJWTAuth создаёт JWTAuth с RSA ключом для тестов.
func newTestJWTAuth(key *rsa.PrivateKey) *JWTAuth {
	jwksJSON := buildJWKSetJSON(&key.PublicKey, testKeyID)
	kf, err := keyfunc.NewJWKSetJSON(jwksJSON)
	if err != nil {
		panic("не удалось создать keyfunc из JWKS JSON: " + err.Error())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewJWTAuthWithKeyfunc(kf, 30*time.Second, logger)
}

func validClaims(sub string, roles []string) rawClaims {
	return rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "user@example.com",
		Name:  "Тестовый Пользователь",
		Roles: roles,
	}
}

// TestJWTAuth_ValidToken проверяет валидный JWT с числовым sub.
func TestJWTAuth_ValidToken(t *testing.T) {
	key, err := generateTestKey()
	if err != nil {
		t.Fatal(err)
	}

	auth := newTestJWTAuth(key)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}
		if claims.UserID != 42 {
			t.Errorf("UserID = %d, ожидался 42", claims.UserID)
		}
		if claims.IsAdmin() {
			t.Error("IsAdmin() = true для обычного пользователя")
		}
		if got := UserIDFromContext(r.Context()); got != 42 {
			t.Errorf("UserIDFromContext = %d, ожидался 42", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	tokenString, err := generateTestToken(key, validClaims("42", []string{"user"}))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/manuscripts/my-manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
}

// TestJWTAuth_MissingToken проверяет отсутствие Authorization header.
func TestJWTAuth_MissingToken(t *testing.T) {
	key, _ := generateTestKey()
	auth := newTestJWTAuth(key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/manuscripts", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_ExpiredToken проверяет просроченный токен.
func TestJWTAuth_ExpiredToken(t *testing.T) {
	key, _ := generateTestKey()
	auth := newTestJWTAuth(key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	claims := validClaims("42", nil)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))

	tokenString, _ := generateTestToken(key, claims)

	req := httptest.NewRequest(http.MethodGet, "/api/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_NonNumericSub проверяет отклонение нечислового sub.
func TestJWTAuth_NonNumericSub(t *testing.T) {
	key, _ := generateTestKey()
	auth := newTestJWTAuth(key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tokenString, _ := generateTestToken(key, validClaims("not-a-number", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_WrongKey проверяет токен, подписанный чужим ключом.
func TestJWTAuth_WrongKey(t *testing.T) {
	key, _ := generateTestKey()
	otherKey, _ := generateTestKey()
	auth := newTestJWTAuth(key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tokenString, _ := generateTestToken(otherKey, validClaims("42", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestRequireAdmin проверяет RBAC по роли admin.
func TestRequireAdmin(t *testing.T) {
	key, _ := generateTestKey()
	auth := newTestJWTAuth(key)

	called := false
	handler := auth.Middleware()(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})))

	// Обычный пользователь — 403
	tokenString, _ := generateTestToken(key, validClaims("42", []string{"user"}))
	req := httptest.NewRequest(http.MethodGet, "/api/admin/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
	if called {
		t.Error("handler вызван без роли admin")
	}

	// Администратор — 200
	tokenString, _ = generateTestToken(key, validClaims("1", []string{"user", "admin"}))
	req = httptest.NewRequest(http.MethodGet, "/api/admin/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
	if !called {
		t.Error("handler не вызван для администратора")
	}
}

// TestNormalizePath проверяет нормализацию путей для метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health/live", "/health/live"},
		{"/api/manuscripts", "/api/manuscripts"},
		{"/api/manuscripts/search", "/api/manuscripts/search"},
		{"/api/manuscripts/123", "/api/manuscripts/{id}"},
		{"/api/manuscripts/images/a1b2c3.png", "/api/manuscripts/images/{filename}"},
		{"/api/admin/manuscripts", "/api/admin/manuscripts"},
		{"/api/admin/manuscripts/42", "/api/admin/manuscripts/{id}"},
		{"/api/admin/manuscripts/42/status", "/api/admin/manuscripts/{id}/status"},
		{"/api/admin/manuscripts/42/featured", "/api/admin/manuscripts/{id}/featured"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", tt.path, got, tt.expected)
		}
	}
}

// TestNewJWKSHTTPClient проверяет настройку TLS клиента JWKS.
func TestNewJWKSHTTPClient(t *testing.T) {
	t.Run("проверка сертификата по умолчанию", func(t *testing.T) {
		client, err := newJWKSHTTPClient("", false, time.Second)
		if err != nil {
			t.Fatalf("newJWKSHTTPClient ошибка: %v", err)
		}
		transport := client.Transport.(*http.Transport)
		if transport.TLSClientConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify = true без запроса")
		}
	})

	t.Run("отключение проверки сертификата", func(t *testing.T) {
		client, err := newJWKSHTTPClient("", true, time.Second)
		if err != nil {
			t.Fatalf("newJWKSHTTPClient ошибка: %v", err)
		}
		transport := client.Transport.(*http.Transport)
		if !transport.TLSClientConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify = false, ожидался true")
		}
	})

	t.Run("несуществующий CA-файл", func(t *testing.T) {
		if _, err := newJWKSHTTPClient("/нет/такого/ca.pem", false, time.Second); err == nil {
			t.Error("ожидалась ошибка чтения CA-файла")
		}
	})
}
