package api

import (
	"github.com/skybi/gatekeeper/internal/api/account"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/config"
	"github.com/skybi/gatekeeper/internal/verification"
)

// Service represents the gatekeeper API service
type Service struct {
	Config   *config.Config
	Verifier *verification.Verifier

	// Audit may be nil if auditing is disabled
	Audit audit.Repository

	account *account.Service
}

// Startup starts up the account API in the background; unexpected serving errors are sent to errs
func (service *Service) Startup(errs chan<- error) {
	accountService := &account.Service{
		Config:   service.Config,
		Verifier: service.Verifier,
		Audit:    service.Audit,
	}
	service.account = accountService
	accountService.Startup(errs)
}

// Shutdown shuts down the account API
func (service *Service) Shutdown() {
	if service.account != nil {
		service.account.Shutdown()
		service.account = nil
	}
}
