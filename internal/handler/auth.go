package handler

import (
	"net/http"

	"github.com/0x3st/ainic/internal/auth"
	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/util"
)

type AuthHandler struct {
	db            *database.DB
	sessionMgr    *auth.SessionManager
	ldap          *auth.LDAPClient
	signupEnabled bool
}

func NewAuthHandler(db *database.DB, sm *auth.SessionManager, ldap *auth.LDAPClient, signupEnabled bool) *AuthHandler {
	return &AuthHandler{db: db, sessionMgr: sm, ldap: ldap, signupEnabled: signupEnabled}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var user *model.User
	authMethod := "local"

	// Try LDAP first (if enabled)
	if h.ldap != nil {
		if result, err := h.ldap.Authenticate(req.Username, req.Password); err == nil && result != nil {
			role, allowed := h.ldap.ResolveRole(result.Groups)
			if !allowed {
				writeJSON(w, http.StatusForbidden, errorResponse{
					Message: "access denied: you are not in an authorized group",
					Code:    http.StatusForbidden,
				})
				return
			}
			_ = h.db.CreateLDAPUser(result.Username, role)
			user, _ = h.db.GetUserByUsername(result.Username)
			authMethod = "ldap"
		}
	}

	if user == nil {
		u, err := h.db.AuthenticateUser(req.Username, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		user = u
	}

	if user == nil || !user.Active {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Message: "invalid credentials",
			Code:    http.StatusUnauthorized,
		})
		return
	}

	token, err := h.sessionMgr.IssueToken(user.Username, user.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	_ = h.db.LogAudit(model.AuditEntry{
		Username:  user.Username,
		Action:    "login",
		Detail:    `{"auth":"` + authMethod + `"}`,
		IPAddress: util.GetClientIP(r),
	})

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Role: user.Role})
}

// Signup self-registers a regular user account, when enabled.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.signupEnabled {
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "signup is disabled", Code: http.StatusForbidden})
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" {
		writeError(w, platform.Invalid("username", "is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, platform.Invalid("password", "must be at least 8 characters"))
		return
	}

	if err := h.db.CreateUser(req.Username, req.Password, "user"); err != nil {
		writeError(w, err)
		return
	}

	_ = h.db.LogAudit(model.AuditEntry{
		Username:  req.Username,
		Action:    "signup",
		IPAddress: util.GetClientIP(r),
	})

	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// Setup bootstraps the first admin account. It answers 404 once any user
// exists.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := h.db.HasUsers()
	if err != nil {
		writeError(w, err)
		return
	}
	if hasUsers {
		writeError(w, platform.ErrNotFound)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" {
		writeError(w, platform.Invalid("username", "is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, platform.Invalid("password", "must be at least 8 characters"))
		return
	}

	if err := h.db.CreateUser(req.Username, req.Password, "admin"); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username, "role": "admin"})
}
