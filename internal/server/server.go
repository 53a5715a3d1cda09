package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/auth"
	"github.com/0x3st/ainic/internal/config"
	"github.com/0x3st/ainic/internal/database"
	"github.com/0x3st/ainic/internal/handler"
	"github.com/0x3st/ainic/internal/provider"
	"github.com/0x3st/ainic/internal/service"
	"github.com/0x3st/ainic/web"
)

func Start(cfg *config.Config, version string) error {
	db, err := database.Open(cfg.Database.DSN, web.MigrationsFS())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	sessionMgr, err := auth.NewSessionManager(db, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to init session manager: %w", err)
	}

	dns, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to init DNS provider: %w", err)
	}
	log.Printf("DNS provider: %s (parent zone %s)", cfg.DNS.Provider, cfg.DNS.ParentZone)

	var ldapClient *auth.LDAPClient
	if cfg.LDAP.Enabled {
		ldapClient = auth.NewLDAPClient(cfg.LDAP)
		log.Println("LDAP authentication enabled")
		log.Printf("LDAP server: %s", cfg.LDAP.URL)
	}

	svc := service.New(cfg, db, dns)

	authH := handler.NewAuthHandler(db, sessionMgr, ldapClient, cfg.Auth.SignupEnabled)
	domainH := handler.NewDomainHandler(svc, db)
	recordH := handler.NewRecordHandler(svc, db)
	reportH := handler.NewReportHandler(db, cfg.DNS.ParentZone)
	adminH := handler.NewAdminHandler(svc, db)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /setup", authH.Setup)
	mux.HandleFunc("POST /login", authH.Login)
	mux.HandleFunc("POST /signup", authH.Signup)
	mux.HandleFunc("POST /report", reportH.Submit)

	mux.HandleFunc("GET /api/domains", sessionMgr.RequireAuth(domainH.List))
	mux.HandleFunc("POST /api/domains", sessionMgr.RequireAuth(domainH.Register))
	mux.HandleFunc("GET /api/domains/{label}", sessionMgr.RequireAuth(domainH.Get))
	mux.HandleFunc("DELETE /api/domains/{label}", sessionMgr.RequireAuth(domainH.Delete))

	mux.HandleFunc("GET /api/domains/{label}/records", sessionMgr.RequireAuth(recordH.List))
	mux.HandleFunc("PUT /api/domains/{label}/records", sessionMgr.RequireAuth(recordH.Reconcile))
	mux.HandleFunc("PUT /api/domains/{label}/records/one", sessionMgr.RequireAuth(recordH.Put))
	mux.HandleFunc("DELETE /api/domains/{label}/records", sessionMgr.RequireAuth(recordH.Delete))

	mux.HandleFunc("GET /api/admin/domains", sessionMgr.RequireAdmin(adminH.ListDomains))
	mux.HandleFunc("POST /api/admin/domains/{label}/suspend", sessionMgr.RequireAdmin(adminH.SuspendDomain))
	mux.HandleFunc("POST /api/admin/domains/{label}/restore", sessionMgr.RequireAdmin(adminH.RestoreDomain))
	mux.HandleFunc("POST /api/admin/domains/{label}/review", sessionMgr.RequireAdmin(adminH.ReviewDomain))
	mux.HandleFunc("DELETE /api/admin/domains/{label}", sessionMgr.RequireAdmin(adminH.DeleteDomain))
	mux.HandleFunc("POST /api/admin/cleanup/{label}", sessionMgr.RequireAdmin(adminH.Cleanup))
	mux.HandleFunc("GET /api/admin/audit", sessionMgr.RequireAdmin(adminH.AuditLog))
	mux.HandleFunc("GET /api/admin/reports", sessionMgr.RequireAdmin(adminH.ListReports))
	mux.HandleFunc("POST /api/admin/reports/{id}/resolve", sessionMgr.RequireAdmin(adminH.ResolveReport))
	mux.HandleFunc("GET /api/admin/users", sessionMgr.RequireAdmin(adminH.ListUsers))
	mux.HandleFunc("POST /api/admin/users", sessionMgr.RequireAdmin(adminH.CreateUser))
	mux.HandleFunc("DELETE /api/admin/users/{username}", sessionMgr.RequireAdmin(adminH.DeleteUser))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("ainic %s listening on %s", version, addr)
	return http.ListenAndServe(addr, mux)
}

func newProvider(cfg *config.Config) (provider.Client, error) {
	switch cfg.DNS.Provider {
	case "desec":
		return provider.NewDesec(cfg.DNS.Desec.APIURL, cfg.DNS.Desec.Token), nil
	case "cloudflare":
		return provider.NewCloudflare(cfg.DNS.Cloudflare.APIURL, cfg.DNS.Cloudflare.Token, cfg.DNS.Cloudflare.AccountID), nil
	case "route53":
		return provider.NewRoute53(context.Background(), cfg.DNS.AWS.Region, cfg.DNS.AWS.AccessKeyID, cfg.DNS.AWS.SecretAccessKey)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.DNS.Provider)
}
