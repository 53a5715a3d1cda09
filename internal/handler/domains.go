package handler

import (
	"net/http"

	"github.com/0x3st/ainic/internal/auth"
	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/service"
	"github.com/0x3st/ainic/internal/util"
)

type DomainHandler struct {
	svc *service.Service
	db  *database.DB
}

func NewDomainHandler(svc *service.Service, db *database.DB) *DomainHandler {
	return &DomainHandler{svc: svc, db: db}
}

type registerRequest struct {
	Label string `json:"label"`
}

func (h *DomainHandler) Register(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	domain, err := h.svc.RegisterDomain(r.Context(), ident.Username, req.Label, util.GetClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain)
}

func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domains, err := h.db.ListDomainsByOwner(ident.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	if domains == nil {
		domains = []model.Domain{}
	}
	writeJSON(w, http.StatusOK, domains)
}

func (h *DomainHandler) Get(w http.ResponseWriter, r *http.Request) {
	domain, err := h.ownedDomain(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain)
}

func (h *DomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())

	domain, err := h.ownedDomain(r)
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

// ownedDomain loads the {label} path domain and enforces ownership. Admins
// go through the /api/admin surface instead.
func (h *DomainHandler) ownedDomain(r *http.Request) (*model.Domain, error) {
	ident := auth.IdentityFrom(r.Context())
	domain, err := h.db.GetDomainByLabel(r.PathValue("label"))
	if err != nil {
		return nil, err
	}
	if domain.Owner != ident.Username {
		// Hide other owners' labels entirely.
		return nil, platform.ErrNotFound
	}
	return domain, nil
}
