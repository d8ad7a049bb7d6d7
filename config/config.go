package config

import (
	"errors"
	"strconv"

	"github.com/orgfoundry/account-controller/common"
)

// Config carries the environment configuration for the controller. It is
// assembled once at startup and injected; nothing reads the environment
// after that.
type Config struct {
	// MasterEmail is the mailbox that owns every automation address and
	// receives fallback notices.
	MasterEmail string

	// EmailSubjectTemplate rewrites forwarded subjects. Supported
	// placeholders: {subject} {from} {to} {accountid} {accountname} {accountemail}.
	EmailSubjectTemplate string

	// LoginSecretID is the Secrets Manager entry holding the root
	// credentials and payment card details used by console procedures.
	LoginSecretID string

	// CaptchaKey is the 2captcha API key. When empty the Rekognition
	// solver is used instead.
	CaptchaKey string

	// DebugBucket receives page screenshots when verbose diagnostics are on.
	DebugBucket string

	// VerboseDiagnostics enables screenshot capture on procedure steps.
	VerboseDiagnostics bool

	// FlowName is the contact flow phone numbers get attached to.
	FlowName string

	// ConnectRegistryParameter is the SSM parameter holding the voice
	// prompt/phone registry.
	ConnectRegistryParameter string

	// SSODescriptorParameter is the SSM parameter holding the SSO
	// application descriptor.
	SSODescriptorParameter string

	// SSOManagerAppName is the display name of the SSO application that
	// federates into the portal.
	SSOManagerAppName string

	// APIGatewayEndpoint is the public endpoint of the portal, embedded in
	// the SSO descriptor.
	APIGatewayEndpoint string

	// SignoutURL is where GET / redirects authenticated users.
	SignoutURL string

	// SpendCapCeiling is the largest budget threshold a requester may set.
	SpendCapCeiling float64

	// FactoryMode provisions accounts through a Service Catalog product
	// instead of the native Organizations API.
	FactoryMode bool

	// FactoryProductID is the catalog product used in factory mode.
	FactoryProductID string

	// FactoryArtifactID is the provisioning artifact of FactoryProductID.
	FactoryArtifactID string

	// OrgGroupName is the identity-store group every org member belongs to.
	OrgGroupName string

	// PromptsDir holds the voice prompt recordings uploaded during
	// telephony setup.
	PromptsDir string

	// TargetFunctionArn is invoked by the contact flow and by scheduled
	// removal rules.
	TargetFunctionArn string
}

var ErrMissingMasterEmail = errors.New("environment variable MASTER_EMAIL is not set")

// Load assembles a Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		MasterEmail:              common.GetEnv("MASTER_EMAIL", ""),
		EmailSubjectTemplate:     common.GetEnv("EMAIL_SUBJECT", "{subject} | {accountname} ({accountid})"),
		LoginSecretID:            common.GetEnv("SECRET_ARN", ""),
		CaptchaKey:               common.GetEnv("CAPTCHA_KEY", ""),
		DebugBucket:              common.GetEnv("DEBUG_BUCKET", ""),
		FlowName:                 common.GetEnv("CONNECT_FLOW_NAME", "myFlow"),
		ConnectRegistryParameter: common.GetEnv("CONNECT_REGISTRY_PARAMETER", "/account-controller/connect-registry"),
		SSODescriptorParameter:   common.GetEnv("SSO_DESCRIPTOR_PARAMETER", "/account-controller/sso-descriptor"),
		SSOManagerAppName:        common.GetEnv("SSO_MANAGER_APP_NAME", "AWS Account Manager"),
		APIGatewayEndpoint:       common.GetEnv("API_GATEWAY_ENDPOINT", ""),
		SignoutURL:               common.GetEnv("SIGNOUT_URL", ""),
		FactoryProductID:         common.GetEnv("FACTORY_PRODUCT_ID", ""),
		FactoryArtifactID:        common.GetEnv("FACTORY_ARTIFACT_ID", ""),
		OrgGroupName:             common.GetEnv("ORG_GROUP_NAME", ""),
		PromptsDir:               common.GetEnv("PROMPTS_DIR", "./prompts"),
		TargetFunctionArn:        common.GetEnv("TARGET_FUNCTION_ARN", ""),
	}

	cfg.VerboseDiagnostics = common.GetEnv("VERBOSE_DIAGNOSTICS", "false") == "true"
	cfg.FactoryMode = common.GetEnv("FACTORY_MODE", "false") == "true"

	ceiling, err := strconv.ParseFloat(common.GetEnv("SPEND_CAP_CEILING", "1000"), 64)
	if err != nil {
		return nil, err
	}

	cfg.SpendCapCeiling = ceiling

	if cfg.MasterEmail == "" {
		return nil, ErrMissingMasterEmail
	}

	return cfg, nil
}
