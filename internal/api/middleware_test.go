package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func callWithToken(middleware func(http.Handler) http.Handler, token string) *httptest.ResponseRecorder {
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": uuid.New().String()})
	rec := callWithToken(AuthMiddleware(testSecret, "", ""), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec := callWithToken(AuthMiddleware(testSecret, "", ""), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_AudienceAndIssuerEnforced(t *testing.T) {
	sub := uuid.New().String()
	middleware := AuthMiddleware(testSecret, "savings-api", "nestvault-auth")

	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   int
	}{
		{
			"matching audience and issuer",
			jwt.MapClaims{"sub": sub, "aud": "savings-api", "iss": "nestvault-auth"},
			http.StatusOK,
		},
		{
			"wrong audience",
			jwt.MapClaims{"sub": sub, "aud": "other-api", "iss": "nestvault-auth"},
			http.StatusUnauthorized,
		},
		{
			"wrong issuer",
			jwt.MapClaims{"sub": sub, "aud": "savings-api", "iss": "other-auth"},
			http.StatusUnauthorized,
		},
		{
			"missing audience claim",
			jwt.MapClaims{"sub": sub, "iss": "nestvault-auth"},
			http.StatusUnauthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := callWithToken(middleware, signToken(t, tc.claims))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAuthMiddleware_EmptyExpectationsSkipChecks(t *testing.T) {
	// A token carrying arbitrary aud/iss passes when the service configures
	// neither expectation.
	token := signToken(t, jwt.MapClaims{"sub": uuid.New().String(), "aud": "anything", "iss": "anyone"})
	rec := callWithToken(AuthMiddleware(testSecret, "", ""), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
