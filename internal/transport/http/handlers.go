package http

import (
	"encoding/json"
	"net/http"

	"zeroforums/internal/domain"
	"zeroforums/internal/dto"
	"zeroforums/internal/reqsig"
	"zeroforums/internal/service"
)

func handleRegister(auth *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", "unparsable body"))
			return
		}
		res, err := auth.Register(r.Context(), req, clientIP(r), r.UserAgent(), r.Header.Get(reqsig.HeaderFingerprint))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleLogin(auth *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", "unparsable body"))
			return
		}
		res, err := auth.Login(r.Context(), req, clientIP(r), r.UserAgent(), r.Header.Get(reqsig.HeaderFingerprint))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleLogout(auth *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Logout(r.Context(), r.Header.Get(reqsig.HeaderSessionToken)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleWipe(auth *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.WipeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", "unparsable body"))
			return
		}
		if err := auth.Wipe(r.Context(), r.Header.Get(reqsig.HeaderSessionToken), req.Confirmation); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
