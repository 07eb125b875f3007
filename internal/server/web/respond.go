package web

import (
	"context"
	"encoding/json"
	"net/http"
)

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(ctx, "error encoding response", "error", err.Error())
	}
}

func (s *Server) writeMsg(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	s.writeJSON(ctx, w, status, map[string]string{"msg": msg})
}

func (s *Server) writeDetail(ctx context.Context, w http.ResponseWriter, status int, detail string) {
	s.writeJSON(ctx, w, status, map[string]string{"detail": detail})
}
