package procedures

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/browser/browsertest"
	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/secretmanager"
)

type stubSecrets struct {
	creds secretmanager.Credentials
}

func (s *stubSecrets) GetCredentials(ctx context.Context, secretID string) (*secretmanager.Credentials, error) {
	creds := s.creds
	return &creds, nil
}

func (s *stubSecrets) GetSecretString(ctx context.Context, secretID string) (string, error) {
	return "", errors.New("not used")
}

type stubSolver struct {
	failures int
	calls    int
	guess    string
}

func (s *stubSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	s.calls++

	if s.calls <= s.failures {
		return "", errors.New("unreadable challenge")
	}

	return s.guess, nil
}

type stubRegistry struct {
	registry connectflow.Registry
	codes    []string
}

func (s *stubRegistry) Load(ctx context.Context) (*connectflow.Registry, error) {
	reg := s.registry
	return &reg, nil
}

func (s *stubRegistry) Save(ctx context.Context, reg *connectflow.Registry) error {
	s.registry = *reg
	return nil
}

func (s *stubRegistry) SetCode(ctx context.Context, code string) error {
	s.codes = append(s.codes, code)
	s.registry.Code = code

	return nil
}

func testLoggerProvider(t *testing.T) logger.Provider {
	t.Helper()

	logging, err := logger.NewLogging(context.Background())
	require.NoError(t, err)

	return func(ctx context.Context) logger.ILogger {
		return logging.Logger(ctx)
	}
}

type libraryFixture struct {
	lib      *Library
	fake     *browsertest.Fake
	secrets  *stubSecrets
	solver   *stubSolver
	registry *stubRegistry
}

func newFixture(t *testing.T) *libraryFixture {
	t.Helper()

	log := testLoggerProvider(t)
	fake := browsertest.New()

	secrets := &stubSecrets{creds: secretmanager.Credentials{
		Username: "automation",
		Password: "hunter2",
		CCNumber: "4111111111111111",
		CCMonth:  "04",
		CCYear:   "2030",
		CCName:   "Cloud Ops",
	}}

	solver := &stubSolver{guess: "AB12CD"}
	registry := &stubRegistry{registry: connectflow.Registry{PhoneNumber: "+15555550100"}}

	cfg := &config.Config{
		MasterEmail:       "master@example.com",
		LoginSecretID:     "login",
		FlowName:          "myFlow",
		SSOManagerAppName: "Account Manager",
		PromptsDir:        "/opt/prompts",
	}

	lib := NewLibrary(log, fake.Factory(), browser.NewDisabledDiagnostics(log), secrets, solver, registry, cfg)
	lib.stepDelay = 0

	return &libraryFixture{lib: lib, fake: fake, secrets: secrets, solver: solver, registry: registry}
}
