package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"fotopro/internal/db"
	"fotopro/internal/domain"
	"fotopro/internal/middleware"
)

const sessionTTL = 7 * 24 * time.Hour

type googleAuthRequest struct {
	IDToken string `json:"idToken"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthGoogle exchanges a Google ID token for a session token, creating the
// user row on first sign-in.
func (a *App) AuthGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "idToken is required")
		return
	}

	claims, err := a.Google.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google id token rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid Google token")
		return
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "token missing subject or email")
		return
	}
	name, _ := claims["name"].(string)
	photo, _ := claims["picture"].(string)

	user, err := a.Store.UpsertUser(r.Context(), db.UpsertUserParams{
		GoogleSub: sub,
		Email:     email,
		Name:      name,
		PhotoURL:  photo,
		Locale:    middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not sign in")
		return
	}

	token, err := middleware.SignJWT(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Locale:   user.Locale,
		Exp:      time.Now().Add(sessionTTL).Unix(),
		Issuer:   "fotopro",
		Audience: "fotopro",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign session token failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not sign in")
		return
	}

	a.json(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the authenticated user's profile.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.Store.GetUserByID(r.Context(), a.currentUserID(r))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	a.json(w, http.StatusOK, user)
}
