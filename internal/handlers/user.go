package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quizarena/quizarena/internal/database"
	"github.com/quizarena/quizarena/internal/models"
)

// CreateUserHandler registers a new profile. Duplicate emails surface as 409.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		http.Error(w, "email, password, and username are required", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email or username already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler exchanges credentials for a session token. The token is
// returned in the body and mirrored in an HttpOnly cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(context.Background(), req.Email, req.Password)
	if err != nil {
		log.Printf("failed to authenticate user: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// SoloProgressHandler records a cleared solo stage and its score. The
// store clamps with GREATEST, so replaying an old stage never regresses
// the profile.
func SoloProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	var req struct {
		Stage int `json:"stage"`
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stage < 1 || req.Score < 0 {
		http.Error(w, "stage >= 1 and score >= 0 are required", http.StatusBadRequest)
		return
	}

	if err := database.SetSoloProgress(r.Context(), userID, req.Stage, req.Score); err != nil {
		http.Error(w, "error saving progress", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the caller's own profile.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	u, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}
