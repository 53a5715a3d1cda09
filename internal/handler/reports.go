package handler

import (
	"net/http"
	"strings"

	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/util"
)

type ReportHandler struct {
	db         *database.DB
	parentZone string
}

func NewReportHandler(db *database.DB, parentZone string) *ReportHandler {
	return &ReportHandler{db: db, parentZone: parentZone}
}

type reportRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Submit takes an anonymous abuse report against a registered subdomain.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	target := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(req.Target)), ".")
	if target == "" || !strings.HasSuffix(target, "."+h.parentZone) {
		writeError(w, platform.Invalid("target", "must be a subdomain of %s", h.parentZone))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		writeError(w, platform.Invalid("reason", "is required"))
		return
	}
	if len(reason) > 2000 {
		writeError(w, platform.Invalid("reason", "must be at most 2000 characters"))
		return
	}

	report, err := h.db.CreateReport(target, reason, util.GetClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
