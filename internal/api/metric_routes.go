package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

func (s *Server) handleLatestMetrics(w http.ResponseWriter, r *http.Request) {
	rows, err := s.latest.Points(r.Context())
	if err != nil {
		s.logger.Error("latest metrics query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch latest metrics")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if !validateTicker(ticker) {
		writeError(w, http.StatusBadRequest, "invalid ticker symbol")
		return
	}

	limit := parseLimit(r, defaultSnapshotLimit)
	rows, err := s.snapshots.Latest(r.Context(), ticker, limit)
	if err != nil {
		s.logger.Error("snapshot query failed", zap.String("ticker", ticker), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch snapshots")
		return
	}
	if rows == nil {
		rows = []models.SnapshotRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}
