package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/country-pulse/internal/model"
	"github.com/sells-group/country-pulse/internal/refresh"
	"github.com/sells-group/country-pulse/internal/source"
	"github.com/sells-group/country-pulse/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Country Currency & Exchange API",
		"endpoints": map[string]string{
			"refresh": "POST /countries/refresh",
			"get_all": "GET /countries",
			"get_one": "GET /countries/{name}",
			"delete":  "DELETE /countries/{name}",
			"status":  "GET /status",
			"image":   "GET /countries/image",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.Run(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrRefreshInFlight):
			writeError(w, http.StatusConflict, "A refresh is already running")
		case source.IsUnavailable(err):
			zap.L().Warn("refresh aborted: upstream unavailable", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "External data source unavailable")
		default:
			zap.L().Error("refresh failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "Countries refreshed successfully",
		"total_countries":   result.Total,
		"last_refreshed_at": timestampOrNil(result.LastRefreshedAt),
	})
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		Region:   r.URL.Query().Get("region"),
		Currency: r.URL.Query().Get("currency"),
		Sort:     r.URL.Query().Get("sort"),
	}

	countries, err := s.store.FindAll(r.Context(), filter)
	if err != nil {
		zap.L().Error("list countries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if countries == nil {
		countries = []model.Country{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	country, err := s.store.FindByName(r.Context(), name)
	if err != nil {
		zap.L().Error("get country failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if country == nil {
		writeError(w, http.StatusNotFound, "Country not found")
		return
	}
	writeJSON(w, http.StatusOK, country)
}

func (s *Server) handleDeleteCountry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	removed, err := s.store.DeleteByName(r.Context(), name)
	if err != nil {
		zap.L().Error("delete country failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Country not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count(r.Context())
	if err != nil {
		zap.L().Error("status count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	last, err := s.store.LastRefreshedAt(r.Context())
	if err != nil {
		zap.L().Error("status last refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_countries":   total,
		"last_refreshed_at": timestampOrNil(last),
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.imagePath); err != nil {
		writeError(w, http.StatusNotFound, "Summary image not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, s.imagePath)
}

func timestampOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
