// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client   *mongo.Client
	Sessions *orgcontext.Registry
	Policy   *rbac.Policy
	Log      *zap.Logger
}

// NewHandler constructs a health Handler. sessions and policy may be nil.
func NewHandler(client *mongo.Client, sessions *orgcontext.Registry, policy *rbac.Policy, logger *zap.Logger) *Handler {
	return &Handler{
		Client:   client,
		Sessions: sessions,
		Policy:   policy,
		Log:      logger,
	}
}

type healthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
	Sessions         int    `json:"sessions"`
	RoleTableVersion uint64 `json:"role_table_version"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "sessions":3, "role_table_version":0 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected"}
	if h.Sessions != nil {
		resp.Sessions = h.Sessions.Len()
	}
	if h.Policy != nil {
		resp.RoleTableVersion = h.Policy.Version()
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
