package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/server/applications"
)

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type registerResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Name         string `json:"name"`
	Msg          string `json:"msg"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(ctx, w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	result, err := s.registrations.Register(ctx, req.Name, req.Email)
	if err != nil {
		var validation *applications.ValidationError
		if errors.As(err, &validation) {
			s.writeJSON(ctx, w, http.StatusBadRequest, map[string]any{"fields": validation.Fields})
			return
		}
		s.logger.Error(ctx, "registration failed", "error", err.Error())
		s.writeDetail(ctx, w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.writeJSON(ctx, w, http.StatusCreated, registerResponse{
		ClientID:     result.ClientID,
		ClientSecret: result.ClientSecret,
		Name:         result.Name,
		Msg:          "Check your email for a verification link.",
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	if _, err := s.activations.Activate(ctx, code); err != nil {
		if errors.Is(err, common.ErrorInvalidCode) {
			s.writeMsg(ctx, w, http.StatusUnauthorized,
				"Invalid verification code. Did you validate your credentials already?")
			return
		}
		s.logger.Error(ctx, "verification failed", "error", err.Error())
		s.writeDetail(ctx, w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.writeMsg(ctx, w, http.StatusOK,
		"Successfully verified email. Your credentials are now active.")
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleToken implements the client-credentials exchange. The endpoint only
// accepts application/x-www-form-urlencoded bodies.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.writeDetail(ctx, w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	clientID := r.PostFormValue("client_id")
	clientSecret := r.PostFormValue("client_secret")

	issued, err := s.tokens.Issue(ctx, clientID, clientSecret)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.writeDetail(ctx, w, http.StatusUnauthorized, "Invalid client credentials.")
			return
		}
		s.logger.Error(ctx, "token issuance failed", "error", err.Error())
		s.writeDetail(ctx, w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.writeJSON(ctx, w, http.StatusOK, tokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresIn:   issued.ExpiresIn,
	})
}

type keyInfoResponse struct {
	RequestsThisMinute int    `json:"requests_this_minute"`
	RequestsToday      int    `json:"requests_today"`
	RateLimitModel     string `json:"rate_limit_model"`
	Verified           bool   `json:"verified"`
}

// handleKeyInfo reports current usage for the authenticated client. The
// lookup is read-only and does not itself consume quota beyond the throttle
// middleware in front of it.
func (s *Server) handleKeyInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := claimsFrom(ctx)
	if !ok {
		s.writeDetail(ctx, w, http.StatusForbidden, "Forbidden")
		return
	}

	usage, err := s.throttle.Inspect(ctx, claims.ClientID, claims.RateTier, claims.Verified)
	if err != nil {
		if errors.Is(err, common.ErrStoreUnavailable) {
			s.writeDetail(ctx, w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
			return
		}
		s.logger.Error(ctx, "key info lookup failed", "error", err.Error())
		s.writeDetail(ctx, w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.writeJSON(ctx, w, http.StatusOK, keyInfoResponse{
		RequestsThisMinute: usage.Burst,
		RequestsToday:      usage.Sustained,
		RateLimitModel:     claims.RateTier,
		Verified:           claims.Verified,
	})
}
