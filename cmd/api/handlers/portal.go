package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/framework/web"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/orchestrator"
	"github.com/orgfoundry/account-controller/sso"
	"github.com/orgfoundry/account-controller/ssoapp"
)

const portalPage = `<!DOCTYPE html>
<html>
<head><title>Account Controller</title></head>
<body>
<h1>Account Controller</h1>
<p>Signed in as %s.</p>
<p>Use the portal API endpoints to list, create and delete accounts.</p>
</body>
</html>`

type Portal interface {
	RedirectToSignOut(ctx *gin.Context) error
	ConsumeAssertion(ctx *gin.Context) error
	ListAccounts(ctx *gin.Context) error
	CreateAccount(ctx *gin.Context) error
	DeleteAccount(ctx *gin.Context) error
}

type portal struct {
	loggerProvider logger.Provider
	accounts       orchestrator.IAccountService
	sessions       *sso.SessionStore
	descriptors    ssoapp.IDescriptorStore
	cfg            *config.Config
}

func NewPortal(
	log logger.Provider,
	accounts orchestrator.IAccountService,
	sessions *sso.SessionStore,
	descriptors ssoapp.IDescriptorStore,
	cfg *config.Config,
) Portal {
	return &portal{
		loggerProvider: log,
		accounts:       accounts,
		sessions:       sessions,
		descriptors:    descriptors,
		cfg:            cfg,
	}
}

// RedirectToSignOut bounces a plain visit to the identity provider's
// sign-out page, which forces a fresh federation back into the portal.
// The portal has no local login of its own.
func (h *portal) RedirectToSignOut(ctx *gin.Context) error {
	descriptor, err := h.descriptors.Load(ctx)
	if err != nil {
		if errors.Is(err, ssoapp.ErrDescriptorNotFound) {
			if h.cfg.SignoutURL != "" {
				ctx.Redirect(http.StatusFound, h.cfg.SignoutURL)
				return nil
			}

			return web.NewRequestError(errors.New("single sign-on is not configured"), http.StatusServiceUnavailable)
		}

		return err
	}

	ctx.Redirect(http.StatusFound, descriptor.SignOutURL)

	return nil
}

// ConsumeAssertion is the SAML assertion consumer: it validates the
// posted response, opens a session and serves the portal page.
func (h *portal) ConsumeAssertion(ctx *gin.Context) error {
	l := h.loggerProvider(ctx)

	encoded := ctx.PostForm("SAMLResponse")
	if encoded == "" {
		return web.NewRequestError(web.ErrAuthenticationFailure, http.StatusUnauthorized)
	}

	identity, err := sso.ParseResponse(encoded, time.Now())
	if err != nil {
		l.Warningf("rejected saml response: %v", err)
		return web.NewRequestError(web.ErrAuthenticationFailure, http.StatusUnauthorized)
	}

	token := h.sessions.Create(*identity)

	ctx.SetCookie(sso.SessionCookie, token, int(sso.DefaultSessionTTL.Seconds()), "/", "", true, true)

	page := fmt.Sprintf(portalPage, template.HTMLEscapeString(identity.Name))

	return web.RespondHTML(ctx, page, http.StatusOK)
}

// identity resolves the caller's session cookie.
func (h *portal) identity(ctx *gin.Context) (*sso.Identity, error) {
	token, err := ctx.Cookie(sso.SessionCookie)
	if err != nil {
		return nil, web.NewRequestError(web.ErrAuthenticationFailure, http.StatusUnauthorized)
	}

	identity, err := h.sessions.Get(token)
	if err != nil {
		return nil, web.NewRequestError(web.ErrAuthenticationFailure, http.StatusUnauthorized)
	}

	return identity, nil
}

func (h *portal) ListAccounts(ctx *gin.Context) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	views, err := h.accounts.ListVisibleAccounts(ctx, identity.GUID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, views, http.StatusOK)
}

func (h *portal) CreateAccount(ctx *gin.Context) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	var req orchestrator.CreateAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}

	result, err := h.accounts.CreateAccount(ctx, &req, identity.GUID)
	if err != nil {
		var validationErr *orchestrator.ValidationError
		if errors.As(err, &validationErr) {
			return web.NewRequestError(validationErr, http.StatusBadRequest)
		}

		return err
	}

	return web.Respond(ctx, result, http.StatusCreated)
}

func (h *portal) DeleteAccount(ctx *gin.Context) error {
	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	var req struct {
		ID string `json:"id"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil || req.ID == "" {
		return web.NewRequestError(web.ErrBadRequest, http.StatusBadRequest)
	}

	if err := h.accounts.MarkForDeletion(ctx, req.ID, identity.GUID); err != nil {
		if errors.Is(err, orchestrator.ErrNotOwner) {
			return web.NewRequestError(orchestrator.ErrNotOwner, http.StatusForbidden)
		}

		return err
	}

	return web.Respond(ctx, nil, http.StatusNoContent)
}
