package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/0x3st/ainic/internal/auth"
	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/service"
	"github.com/0x3st/ainic/internal/util"
)

type AdminHandler struct {
	svc *service.Service
	db  *database.DB
}

func NewAdminHandler(svc *service.Service, db *database.DB) *AdminHandler {
	return &AdminHandler{svc: svc, db: db}
}

type pagedResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func (h *AdminHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	domains, total, err := h.db.ListDomains(limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if domains == nil {
		domains = []model.Domain{}
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: domains, Total: total})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) SuspendDomain(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, platform.Invalid("reason", "is required"))
		return
	}

	if err := h.svc.SuspendDomain(r.Context(), ident.Username, domain, req.Reason, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) RestoreDomain(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		writeError(w, err)
		return
	}
	if domain.Status != model.StatusSuspended && domain.Status != model.StatusReview {
		writeError(w, platform.Invalid("domain", "only suspended or review domains can be restored"))
		return
	}

	if err := h.svc.RestoreDomain(r.Context(), ident.Username, domain, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) ReviewDomain(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.ReviewDomain(ident.Username, domain, req.Reason, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.RemoveDomain(r.Context(), ident.Username, domain, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Cleanup repairs orphaned provider state for a label, whether or not a row
// still exists for it.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	if err := h.svc.CleanupLabel(r.Context(), ident.Username, r.PathValue("label"), util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	entries, total, err := h.db.ListAuditLog(limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: entries, Total: total})
}

func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.ReportOpen
	}
	limit, offset := pagination(r, 50)
	reports, total, err := h.db.ListReports(status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []model.AbuseReport{}
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: reports, Total: total})
}

type resolveRequest struct {
	Action string `json:"action"` // dismiss or review
	Reason string `json:"reason"`
}

// ResolveReport closes an abuse report; the review action also moves the
// target domain into moderation.
func (h *AdminHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Action != model.ResolveDismiss && req.Action != model.ResolveReview {
		writeError(w, platform.Invalid("action", "must be %q or %q", model.ResolveDismiss, model.ResolveReview))
		return
	}

	report, err := h.db.GetReport(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Action == model.ResolveReview {
		label := strings.TrimSuffix(report.TargetFQDN, "."+h.svc.ParentZone())
		domain, err := h.db.GetDomainByLabel(label)
		if err != nil {
			writeError(w, err)
			return
		}
		reason := req.Reason
		if reason == "" {
			reason = "abuse report " + report.ID
		}
		if err := h.svc.ReviewDomain(ident.Username, domain, reason, util.GetClientIP(r)); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.db.ResolveReport(report.ID, req.Action, ident.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		writeError(w, err)
		return
	}

	type userView struct {
		Username   string `json:"username"`
		Role       string `json:"role"`
		Active     bool   `json:"active"`
		AuthSource string `json:"auth_source"`
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{Username: u.Username, Role: u.Role, Active: u.Active, AuthSource: u.AuthSource})
	}
	writeJSON(w, http.StatusOK, views)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Role != "admin" && req.Role != "user" {
		req.Role = "user"
	}
	if req.Username == "" || len(req.Password) < 8 {
		writeError(w, platform.Invalid("user", "username and a password of at least 8 characters are required"))
		return
	}

	if err := h.db.CreateUser(req.Username, req.Password, req.Role); err != nil {
		writeError(w, err)
		return
	}

	_ = h.db.LogAudit(model.AuditEntry{
		Username:  ident.Username,
		Action:    "create_user",
		Target:    req.Username,
		Detail:    `{"role":"` + req.Role + `"}`,
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusCreated, nil)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())
	target := r.PathValue("username")

	if target == ident.Username {
		writeError(w, platform.Invalid("username", "cannot delete yourself"))
		return
	}

	if err := h.db.DeleteUser(target); err != nil {
		writeError(w, err)
		return
	}

	_ = h.db.LogAudit(model.AuditEntry{
		Username:  ident.Username,
		Action:    "delete_user",
		Target:    target,
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, nil)
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = defaultLimit
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
