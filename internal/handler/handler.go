package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/guardview/guardview/internal/config"
	"github.com/guardview/guardview/internal/database"
	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	rdb          *database.Redis
	log          *logger.Logger
	cfg          *config.Config
	securitySvc  *service.SecurityService
	reconcileSvc *service.ReconcileService
	validate     *validator.Validate
}

// New creates a new Handler instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config, securitySvc *service.SecurityService, reconcileSvc *service.ReconcileService) *Handler {
	return &Handler{
		rdb:          rdb,
		log:          log,
		cfg:          cfg,
		securitySvc:  securitySvc,
		reconcileSvc: reconcileSvc,
		validate:     validator.New(),
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
