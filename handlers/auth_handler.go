package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/middleware"
	"github.com/floppyflax/beer-pong-league-sub000/services"
	"github.com/golang-jwt/jwt/v4"
)

type AuthHandler struct {
	authService  services.AuthService
	mergeService services.MergeService
	jwtSecret    []byte
}

func NewAuthHandler(authService services.AuthService, mergeService services.MergeService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		mergeService: mergeService,
		jwtSecret:    []byte(jwtSecret),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" || input.DisplayName == "" {
		badRequestResponse(w, r, errors.New("display name, email, and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"user": user,
	}

	err = writeJSON(w, http.StatusCreated, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tokenString, err := h.signToken(user.ID, user.DisplayName)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token": tokenString,
		"user":  user,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateAnonymous bootstraps a device-local identity so players can join
// leagues and record matches before ever creating an account.
func (h *AuthHandler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	var input services.AnonymousInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	anon, err := h.authService.CreateAnonymous(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"anonymous_user": anon,
	}

	err = writeJSON(w, http.StatusCreated, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Claim merges an anonymous identity's history into the authenticated
// account. Safe to call again with the same pair.
func (h *AuthHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		AnonymousUserID string `json:"anonymous_user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.AnonymousUserID == "" {
		badRequestResponse(w, r, errors.New("anonymous_user_id is required"))
		return
	}

	if err := h.authService.Claim(r.Context(), input.AnonymousUserID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := map[string]string{"message": "anonymous identity claimed"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ClaimReceipt reports whether and where an anonymous identity was merged.
func (h *AuthHandler) ClaimReceipt(w http.ResponseWriter, r *http.Request) {
	anonymousUserID := r.URL.Query().Get("anonymous_user_id")
	if anonymousUserID == "" {
		badRequestResponse(w, r, errors.New("anonymous_user_id is required"))
		return
	}

	receipt, err := h.mergeService.Receipt(r.Context(), anonymousUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"receipt": receipt,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) signToken(userID, displayName string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"name":    displayName,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
