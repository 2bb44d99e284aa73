package server

import (
	"net/http"
	"testing"

	"babyprep/backend/internal/auth"
)

func TestSignupLoginAndDuplicateEmail(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"email":    " Mom@Example.com ",
		"password": "secret123",
		"pregnant": true,
		"due_date": "2026-10-08",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected token in signup response")
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "mom@example.com" || user["nickname"] != "mom" || user["pregnant"] != true {
		t.Fatalf("unexpected signup user payload: %v", user)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/users/me", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /users/me, got %d body=%s", rec.Code, rec.Body.String())
	}
	me := decodeJSONMap(t, rec)
	pregnancyInfo, _ := me["pregnancy"].(map[string]any)
	if pregnancyInfo["startDate"] != "2026-01-01" || pregnancyInfo["ovulationWeekStart"] != "2026-01-15" {
		t.Fatalf("expected due date to derive start, got %v", pregnancyInfo)
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"email":    "mom@example.com",
		"password": "another123",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "MOM@example.com",
		"password": "secret123",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "mom@example.com",
		"password": "wrong-password",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Invalid email or password" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestTokenForUnknownUserIsRejected(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)

	rec := performRequest(t, router, http.MethodGet, "/api/v1/users/me", signToken(t, testID(), nil), nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "User not found" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestGoogleLoginLinksExistingEmail(t *testing.T) {
	resetDatabase(t)
	userID := seedUser(t, "")
	email := "user-" + userID[:8] + "@example.com"

	router := newTestRouter(t, WithGoogleVerifier(stubGoogle{identity: auth.SocialIdentity{
		Provider:      auth.ProviderGoogle,
		Subject:       "google-sub-1",
		Email:         email,
		EmailVerified: true,
		Nickname:      "Google Mom",
	}}))

	for attempt := 0; attempt < 2; attempt++ {
		rec := performRequest(t, router, http.MethodPost, "/api/v1/auth/google", "", map[string]any{
			"credential": "id-token",
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d body=%s", attempt, rec.Code, rec.Body.String())
		}
		user, _ := decodeJSONMap(t, rec)["user"].(map[string]any)
		if user["id"] != userID {
			t.Fatalf("attempt %d: expected linked user %s, got %v", attempt, userID, user["id"])
		}
		if user["provider"] != auth.ProviderGoogle {
			t.Fatalf("attempt %d: expected google provider, got %v", attempt, user["provider"])
		}
	}

	if count := countRows(t, `SELECT COUNT(*) FROM "User"`); count != 1 {
		t.Fatalf("expected a single user row, got %d", count)
	}
}

func TestSocialLoginDoesNotLinkUnverifiedEmail(t *testing.T) {
	resetDatabase(t)
	userID := seedUser(t, "")
	email := "user-" + userID[:8] + "@example.com"

	router := newTestRouter(t, WithKakaoVerifier(stubKakao{identity: auth.SocialIdentity{
		Provider: auth.ProviderKakao,
		Subject:  "9001",
		Email:    email,
		Nickname: "other",
	}}))

	rec := performRequest(t, router, http.MethodPost, "/api/v1/auth/kakao", "", map[string]any{
		"code": "auth-code",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	user, _ := decodeJSONMap(t, rec)["user"].(map[string]any)
	if user["id"] == userID {
		t.Fatalf("expected a separate account, got linked user %s", userID)
	}
	if user["email"] != "kakao_9001@kakao.local" {
		t.Fatalf("expected synthetic kakao email, got %v", user["email"])
	}
	if count := countRows(t, `SELECT COUNT(*) FROM "User"`); count != 2 {
		t.Fatalf("expected two user rows, got %d", count)
	}
	if count := countRows(t, `SELECT COUNT(*) FROM "User" WHERE id = $1 AND "socialId" IS NULL`, userID); count != 1 {
		t.Fatalf("expected existing account untouched, got %d", count)
	}
}

func TestKakaoLoginCreatesUser(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t, WithKakaoVerifier(stubKakao{identity: auth.SocialIdentity{
		Provider: auth.ProviderKakao,
		Subject:  "4242",
		Nickname: "카카오맘",
	}}))

	rec := performRequest(t, router, http.MethodPost, "/api/v1/auth/kakao", "", map[string]any{
		"code": "auth-code",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	user, _ := decodeJSONMap(t, rec)["user"].(map[string]any)
	if user["email"] != "kakao_4242@kakao.local" || user["nickname"] != "카카오맘" {
		t.Fatalf("unexpected kakao user: %v", user)
	}
}

func TestDeleteMeCascadesOwnedRows(t *testing.T) {
	resetDatabase(t)
	userID := seedUser(t, "")
	otherID := seedUser(t, "")
	seedProfile(t, userID, 160, 60, 65)
	seedTodo(t, userID, "병원 예약", testNow)
	seedTodo(t, otherID, "keep me", testNow)
	router := newTestRouter(t)
	token := signToken(t, userID, nil)

	rec := performRequest(t, router, http.MethodDelete, "/api/v1/auth/me", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if count := countRows(t, `SELECT COUNT(*) FROM "UserProfile" WHERE "userId" = $1`, userID); count != 0 {
		t.Fatalf("expected profile removed, got %d", count)
	}
	if count := countRows(t, `SELECT COUNT(*) FROM "CalendarEvent"`); count != 1 {
		t.Fatalf("expected only the other user's todo left, got %d", count)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/users/me", token, nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected deleted user token to be rejected, got %d", rec.Code)
	}
}
