package handler

import (
	"net/http"

	"github.com/0x3st/ainic/internal/auth"
	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/provider"
	"github.com/0x3st/ainic/internal/service"
	"github.com/0x3st/ainic/internal/util"
)

type RecordHandler struct {
	svc *service.Service
	db  *database.DB
}

func NewRecordHandler(svc *service.Service, db *database.DB) *RecordHandler {
	return &RecordHandler{svc: svc, db: db}
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	domain, err := h.mutableDomain(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.svc.ListRecords(r.Context(), domain)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []provider.RRSet{}
	}
	writeJSON(w, http.StatusOK, records)
}

type reconcileRequest struct {
	Records []provider.RRSet `json:"records"`
}

type reconcileResponse struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Reconcile replaces the domain's user-manageable records with exactly the
// submitted set.
func (h *RecordHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.mutableDomain(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, deleted, err := h.svc.ReconcileRecords(r.Context(), ident.Username, domain, req.Records, util.GetClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Updated: updated, Deleted: deleted})
}

func (h *RecordHandler) Put(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.mutableDomain(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	var rr provider.RRSet
	if err := decodeJSON(r, &rr); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.PutRecord(r.Context(), ident.Username, domain, rr, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

type deleteRecordRequest struct {
	Subname string `json:"subname"`
	Type    string `json:"type"`
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.mutableDomain(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	var req deleteRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeleteRecord(r.Context(), ident.Username, domain, req.Subname, req.Type, util.GetClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// mutableDomain loads the owned domain and, for mutations, rejects domains
// that are not active (suspended or under review).
func (h *RecordHandler) mutableDomain(r *http.Request, mutating bool) (*model.Domain, error) {
	ident := auth.IdentityFrom(r.Context())
	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		return nil, err
	}
	if domain.Owner != ident.Username {
		return nil, platform.ErrNotFound
	}
	if mutating && domain.Status != model.StatusActive {
		return nil, platform.Invalid("domain", "domain is %s and cannot be modified", domain.Status)
	}
	return domain, nil
}
