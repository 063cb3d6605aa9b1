package handler

import (
	"errors"
	"net/http"

	"github.com/enesbilik/cleny/internal/api/respond"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/push"
)

// RunNotifications triggers one campaign batch run. The campaign comes from
// the `type` query parameter; absence defaults to daily. Meant to be called
// by the platform cron, not by end-user clients.
func (h *Handler) RunNotifications(w http.ResponseWriter, r *http.Request) {
	campaign, err := notify.ParseCampaign(r.URL.Query().Get("type"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_CAMPAIGN",
			"type must be one of: daily, inactive, streak_risk, milestone, weekly, dormant")
		return
	}

	res, err := h.runner.Run(r.Context(), campaign)
	if err != nil {
		var deliveryErr *push.DeliveryError
		if errors.As(err, &deliveryErr) {
			// Segments sent before the failure stand; report what landed.
			respond.WriteJSONObject(w, http.StatusBadGateway, map[string]interface{}{
				"error":   "push delivery failed",
				"partial": res,
			})
			return
		}
		respond.WriteError(w, http.StatusInternalServerError, "CAMPAIGN_ERROR",
			"Campaign run failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}
