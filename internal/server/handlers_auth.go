package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"babyprep/backend/internal/auth"
	"babyprep/backend/internal/pregnancy"
)

func userResponse(user AuthUser) gin.H {
	return gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"nickname": user.Nickname,
		"provider": user.Provider,
		"pregnant": user.IsPregnant,
	}
}

func (a *App) respondWithToken(c *gin.Context, status int, user AuthUser) {
	token, err := a.issueToken(user)
	if err != nil {
		a.internalError(c, err, "Failed to issue token")
		return
	}
	c.JSON(status, gin.H{
		"token":      token,
		"token_type": "bearer",
		"user":       userResponse(user),
	})
}

func (a *App) signup(c *gin.Context) {
	var payload signupRequest
	if !mustJSON(c, &payload) {
		return
	}

	email := normalizeEmail(payload.Email)
	if !validEmail(email) {
		writeError(c, http.StatusBadRequest, "A valid email is required")
		return
	}
	dueDate, err := parseOptionalDate(payload.DueDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	hash, err := auth.HashPassword(payload.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to hash password")
		return
	}

	user := AuthUser{
		ID:         uuid.NewString(),
		Email:      email,
		Provider:   auth.ProviderLocal,
		Nickname:   defaultNickname(email, payload.Nickname),
		IsPregnant: payload.Pregnant,
	}
	ctx := c.Request.Context()
	err = withTx(ctx, a.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO "User" (id, email, "passwordHash", provider, nickname, "isPregnant", "createdAt", "updatedAt")
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			user.ID,
			user.Email,
			hash,
			user.Provider,
			user.Nickname,
			user.IsPregnant,
		); err != nil {
			return err
		}
		if dueDate == nil {
			return nil
		}
		start := pregnancy.StartFromDue(*dueDate)
		return upsertPregnancyInfo(ctx, tx, user.ID, &start, dueDate)
	})
	if isUniqueViolation(err) {
		writeError(c, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to create user")
		return
	}

	a.log.WithField("user_id", user.ID).Info("user signed up")
	a.respondWithToken(c, http.StatusCreated, user)
}

func (a *App) login(c *gin.Context) {
	var payload loginRequest
	if !mustJSON(c, &payload) {
		return
	}

	user := AuthUser{}
	var passwordHash *string
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, email, provider, nickname, "isPregnant", "passwordHash"
		 FROM "User" WHERE email = $1`,
		normalizeEmail(payload.Email),
	).Scan(&user.ID, &user.Email, &user.Provider, &user.Nickname, &user.IsPregnant, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to load user")
		return
	}
	if passwordHash == nil || !auth.CheckPassword(*passwordHash, payload.Password) {
		writeError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	a.respondWithToken(c, http.StatusOK, user)
}

func (a *App) googleLogin(c *gin.Context) {
	var payload googleLoginRequest
	if !mustJSON(c, &payload) {
		return
	}
	identity, err := a.google.Verify(c.Request.Context(), payload.Credential, payload.IsCode)
	a.finishSocialLogin(c, identity, err)
}

func (a *App) kakaoLogin(c *gin.Context) {
	var payload kakaoLoginRequest
	if !mustJSON(c, &payload) {
		return
	}
	identity, err := a.kakao.Verify(c.Request.Context(), payload.Code)
	a.finishSocialLogin(c, identity, err)
}

func (a *App) finishSocialLogin(c *gin.Context, identity auth.SocialIdentity, err error) {
	switch {
	case errors.Is(err, auth.ErrProviderNotConfigured):
		writeError(c, http.StatusServiceUnavailable, "Social login is not configured")
		return
	case errors.Is(err, auth.ErrSocialRejected):
		a.log.WithError(err).Warn("social credential rejected")
		writeError(c, http.StatusUnauthorized, "Social credential rejected")
		return
	case err != nil:
		a.internalError(c, err, "Social login failed")
		return
	}

	var user AuthUser
	ctx := c.Request.Context()
	err = withTx(ctx, a.db, func(tx pgx.Tx) error {
		var txErr error
		user, txErr = upsertSocialUser(ctx, tx, identity)
		return txErr
	})
	if err != nil {
		a.internalError(c, err, "Failed to save social user")
		return
	}
	a.respondWithToken(c, http.StatusOK, user)
}

// upsertSocialUser finds the account by provider subject, then links an existing account with the
// same email, then creates a new one. Only a provider-verified email is linked or stored; otherwise
// the new account gets a synthetic provider address.
func upsertSocialUser(ctx context.Context, q dbQuerier, identity auth.SocialIdentity) (AuthUser, error) {
	const selectColumns = `SELECT id, email, provider, nickname, "isPregnant" FROM "User"`
	scan := func(row pgx.Row) (AuthUser, error) {
		user := AuthUser{}
		err := row.Scan(&user.ID, &user.Email, &user.Provider, &user.Nickname, &user.IsPregnant)
		return user, err
	}

	user, err := scan(q.QueryRow(
		ctx,
		selectColumns+` WHERE provider = $1 AND "socialId" = $2`,
		identity.Provider,
		identity.Subject,
	))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, err
	}

	email := ""
	if identity.EmailVerified {
		email = normalizeEmail(identity.Email)
	}
	if email != "" {
		user, err = scan(q.QueryRow(ctx, selectColumns+` WHERE email = $1`, email))
		if err == nil {
			if _, err := q.Exec(
				ctx,
				`UPDATE "User" SET provider = $2, "socialId" = $3, "updatedAt" = NOW() WHERE id = $1`,
				user.ID,
				identity.Provider,
				identity.Subject,
			); err != nil {
				return AuthUser{}, err
			}
			user.Provider = identity.Provider
			return user, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return AuthUser{}, err
		}
	}
	if email == "" {
		email = identity.Provider + "_" + identity.Subject + "@" + identity.Provider + ".local"
	}

	user = AuthUser{
		ID:       uuid.NewString(),
		Email:    email,
		Provider: identity.Provider,
		Nickname: defaultNickname(email, strings.TrimSpace(identity.Nickname)),
	}
	if _, err := q.Exec(
		ctx,
		`INSERT INTO "User" (id, email, provider, "socialId", nickname, "createdAt", "updatedAt")
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		user.ID,
		user.Email,
		user.Provider,
		identity.Subject,
		user.Nickname,
	); err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

func (a *App) deleteMe(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := c.Request.Context()
	err := withTx(ctx, a.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM "User" WHERE id = $1`, user.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to delete user")
		return
	}

	a.log.WithField("user_id", user.ID).Info("user deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
