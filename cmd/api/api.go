package api

import (
	"net/http"
	"os"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/captcha"
	"github.com/orgfoundry/account-controller/cmd/api/handlers"
	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/framework/connection"
	"github.com/orgfoundry/account-controller/framework/mid"
	"github.com/orgfoundry/account-controller/framework/web"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/mailer"
	"github.com/orgfoundry/account-controller/orchestrator"
	"github.com/orgfoundry/account-controller/procedures"
	"github.com/orgfoundry/account-controller/scheduler"
	"github.com/orgfoundry/account-controller/secretmanager"
	"github.com/orgfoundry/account-controller/servicecatalog"
	"github.com/orgfoundry/account-controller/sso"
	"github.com/orgfoundry/account-controller/ssoapp"
)

type API struct {
	shutdown chan os.Signal
	log      *logger.Logging
	conn     *connection.Connection
	cfg      *config.Config
}

func NewAPI(shutdown chan os.Signal, logging *logger.Logging, conn *connection.Connection, cfg *config.Config) *API {
	return &API{
		shutdown,
		logging,
		conn,
		cfg,
	}
}

// Build wires the service graph and mounts the routes, returning the
// http.Handler the server runs.
func (a *API) Build() http.Handler {
	loggerProvider := logger.FromContext

	app := web.NewApp(a.shutdown, a.conn, mid.Logger(), mid.Errors(), mid.Panics(), mid.Sentry())

	dir := directory.NewDirectoryService(loggerProvider, a.conn)
	sched := scheduler.NewScheduler(loggerProvider, a.conn, a.cfg.TargetFunctionArn)
	secrets := secretmanager.NewSecretsService(a.conn.SecretsManager)
	registry := connectflow.NewRegistryStore(a.conn.SSM, a.cfg.ConnectRegistryParameter)
	descriptors := ssoapp.NewDescriptorStore(a.conn.SSM, a.cfg.SSODescriptorParameter)
	factory := servicecatalog.NewFactoryService(loggerProvider, a.conn.ServiceCatalog, dir, a.cfg.FactoryProductID, a.cfg.FactoryArtifactID)
	mail := mailer.NewMailService(loggerProvider, a.conn.SES, a.conn.S3, a.cfg.MasterEmail, a.cfg.EmailSubjectTemplate)

	// The image captcha solver falls back to Rekognition when no
	// external solver key is configured.
	var solver captcha.Solver
	if a.cfg.CaptchaKey != "" {
		solver = captcha.NewTwoCaptchaSolver(loggerProvider, a.cfg.CaptchaKey)
	} else {
		solver = captcha.NewRekognitionSolver(loggerProvider, a.conn)
	}

	diagnostics := browser.NewDiagnostics(loggerProvider, a.conn, a.cfg.DebugBucket, a.cfg.VerboseDiagnostics)
	sessions := browser.NewChromeFactory(true)
	library := procedures.NewLibrary(loggerProvider, sessions, diagnostics, secrets, solver, registry, a.cfg)
	console := orchestrator.NewConsole(loggerProvider, library, a.cfg)

	accounts := orchestrator.NewAccountService(loggerProvider, dir, sched, console, mail, factory, a.cfg)
	stacks := orchestrator.NewStackHandler(loggerProvider, console, registry, descriptors, a.conn.SES, a.cfg)
	dispatcher := orchestrator.NewDispatcher(loggerProvider, accounts, stacks, registry)

	webSessions := sso.NewSessionStore(sso.DefaultSessionTTL)

	portal := handlers.NewPortal(loggerProvider, accounts, webSessions, descriptors, a.cfg)
	events := handlers.NewEvents(loggerProvider, dispatcher)

	app.Get("/", portal.RedirectToSignOut)
	app.Post("/", portal.ConsumeAssertion)
	app.Post("/accounts", portal.ListAccounts)
	app.Post("/createaccount", portal.CreateAccount)
	app.Post("/deleteaccount", portal.DeleteAccount)
	app.Post("/events", events.ProcessEvent)

	return app
}
