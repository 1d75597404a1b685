package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifyJWT(t *testing.T) {
	secret := "test-secret"
	claims := TokenClaims{
		Sub:      "acct-123",
		Email:    "user@example.com",
		Exp:      time.Now().Add(time.Hour).Unix(),
		Issuer:   "clipsheet",
		Audience: "clipsheet-extension",
	}
	token, err := SignJWT(secret, claims)
	if err != nil {
		t.Fatalf("SignJWT() unexpected error: %v", err)
	}
	parsed, err := VerifyJWT(secret, token)
	if err != nil {
		t.Fatalf("VerifyJWT() unexpected error: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Email != claims.Email {
		t.Fatalf("VerifyJWT() returned %+v, want %+v", parsed, claims)
	}
}

func TestVerifyJWTInvalidSignature(t *testing.T) {
	token, err := SignJWT("secret-a", TokenClaims{Sub: "acct-123", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("SignJWT() error: %v", err)
	}
	if _, err := VerifyJWT("secret-b", token); err == nil {
		t.Fatalf("VerifyJWT() expected invalid signature error")
	}
}

func TestVerifyJWTExpired(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{Sub: "acct-123", Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("SignJWT() error: %v", err)
	}
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Fatalf("VerifyJWT() expected expiration error")
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	verifier := JWTVerifier{Secret: "secret"}
	token, err := SignJWT("secret", TokenClaims{Sub: "acct-123", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("SignJWT() error: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantSub    string
	}{
		{
			name:       "valid bearer",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
			wantSub:    "acct-123",
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotSub string
			handler := Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSub = AccountIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if gotSub != tc.wantSub {
				t.Fatalf("account id in context = %q, want %q", gotSub, tc.wantSub)
			}
		})
	}
}
