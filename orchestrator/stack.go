package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/ssoapp"
)

// Custom resource types the stack handler owns.
const (
	ResourceTypeConnectSetup = "Custom::ConnectSetup"
	ResourceTypeSSOSetup     = "Custom::SSOSetup"
)

// Receipt rule sets toggled around the inbound email pipeline.
const (
	activeRuleSetName  = "account-controller"
	defaultRuleSetName = "default-rule-set"
)

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"
)

// stackRequest is the CloudFormation custom resource payload.
type stackRequest struct {
	RequestType        string          `json:"RequestType"`
	ResourceType       string          `json:"ResourceType"`
	ResponseURL        string          `json:"ResponseURL"`
	StackID            string          `json:"StackId"`
	RequestID          string          `json:"RequestId"`
	LogicalResourceID  string          `json:"LogicalResourceId"`
	PhysicalResourceID string          `json:"PhysicalResourceId"`
	ResourceProperties json.RawMessage `json:"ResourceProperties"`
}

// stackResponse is what CloudFormation expects back on the presigned
// response URL.
type stackResponse struct {
	Status             string            `json:"Status"`
	Reason             string            `json:"Reason,omitempty"`
	PhysicalResourceID string            `json:"PhysicalResourceId"`
	StackID            string            `json:"StackId"`
	RequestID          string            `json:"RequestId"`
	LogicalResourceID  string            `json:"LogicalResourceId"`
	NoEcho             bool              `json:"NoEcho"`
	Data               map[string]string `json:"Data,omitempty"`
}

// StackHandler provisions the resources CloudFormation cannot express:
// the Connect telephony instance and the SSO portal application.
type StackHandler struct {
	loggerProvider logger.Provider
	console        ConsoleAutomation
	registry       connectflow.IRegistryStore
	descriptors    ssoapp.IDescriptorStore
	sesClient      sesiface.SESAPI
	http           *resty.Client
	cfg            *config.Config
}

func NewStackHandler(
	log logger.Provider,
	console ConsoleAutomation,
	registry connectflow.IRegistryStore,
	descriptors ssoapp.IDescriptorStore,
	sesClient sesiface.SESAPI,
	cfg *config.Config,
) *StackHandler {
	return &StackHandler{
		loggerProvider: log,
		console:        console,
		registry:       registry,
		descriptors:    descriptors,
		sesClient:      sesClient,
		http:           resty.New(),
		cfg:            cfg,
	}
}

// Handle runs one custom resource request and always reports the
// outcome to CloudFormation, FAILED included, so the stack never hangs
// waiting for a callback.
func (h *StackHandler) Handle(ctx context.Context, raw []byte) error {
	l := h.loggerProvider(ctx)

	var req stackRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("unmarshaling stack request: %w", err)
	}

	l.Infof("stack event %s on %s (%s)", req.RequestType, req.ResourceType, req.LogicalResourceID)

	data, err := h.execute(ctx, &req)
	if err != nil {
		l.Errorf("stack event %s on %s failed: %v", req.RequestType, req.ResourceType, err)

		if respondErr := h.respond(ctx, &req, statusFailed, err.Error(), nil); respondErr != nil {
			l.Errorf("reporting failure to cloudformation: %v", respondErr)
		}

		return err
	}

	return h.respond(ctx, &req, statusSuccess, "", data)
}

func (h *StackHandler) execute(ctx context.Context, req *stackRequest) (map[string]string, error) {
	switch req.ResourceType {
	case ResourceTypeConnectSetup:
		return h.executeConnect(ctx, req)
	case ResourceTypeSSOSetup:
		return h.executeSSO(ctx, req)
	default:
		return nil, fmt.Errorf("unknown resource type %s", req.ResourceType)
	}
}

func (h *StackHandler) executeConnect(ctx context.Context, req *stackRequest) (map[string]string, error) {
	domain := gjson.GetBytes(req.ResourceProperties, "Domain").String()
	if domain == "" {
		domain = h.cfg.FlowName
	}

	switch req.RequestType {
	case "Create":
		if _, err := h.sesClient.SetActiveReceiptRuleSetWithContext(ctx, &ses.SetActiveReceiptRuleSetInput{
			RuleSetName: aws.String(activeRuleSetName),
		}); err != nil {
			return nil, err
		}

		registry, err := h.console.SetupTelephony(ctx, domain)
		if err != nil {
			return nil, err
		}

		if err := h.registry.Save(ctx, registry); err != nil {
			return nil, err
		}

		return map[string]string{"PhoneNumber": registry.PhoneNumber}, nil

	case "Delete":
		if _, err := h.sesClient.SetActiveReceiptRuleSetWithContext(ctx, &ses.SetActiveReceiptRuleSetInput{
			RuleSetName: aws.String(defaultRuleSetName),
		}); err != nil {
			return nil, err
		}

		if _, err := h.sesClient.DeleteReceiptRuleSetWithContext(ctx, &ses.DeleteReceiptRuleSetInput{
			RuleSetName: aws.String(activeRuleSetName),
		}); err != nil {
			return nil, err
		}

		return nil, h.console.TeardownTelephony(ctx, domain)

	default:
		// Updates are a no-op; the instance carries no mutable settings.
		return nil, nil
	}
}

func (h *StackHandler) executeSSO(ctx context.Context, req *stackRequest) (map[string]string, error) {
	switch req.RequestType {
	case "Create":
		descriptor, err := h.console.SetupSSOApp(ctx)
		if err != nil {
			return nil, err
		}

		if err := h.descriptors.Save(ctx, descriptor); err != nil {
			return nil, err
		}

		return map[string]string{
			"SignInUrl":  descriptor.SignInURL,
			"SignOutUrl": descriptor.SignOutURL,
		}, nil

	case "Delete":
		if err := h.console.TeardownSSOApp(ctx); err != nil {
			return nil, err
		}

		return nil, h.descriptors.Delete(ctx)

	default:
		return nil, nil
	}
}

// respond PUTs the result to the presigned response URL.
func (h *StackHandler) respond(ctx context.Context, req *stackRequest, status, reason string, data map[string]string) error {
	physicalID := req.PhysicalResourceID
	if physicalID == "" {
		physicalID = fmt.Sprintf("%s-%s", req.ResourceType, req.LogicalResourceID)
	}

	body := stackResponse{
		Status:             status,
		Reason:             reason,
		PhysicalResourceID: physicalID,
		StackID:            req.StackID,
		RequestID:          req.RequestID,
		LogicalResourceID:  req.LogicalResourceID,
		Data:               data,
	}

	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(body).
		Put(req.ResponseURL)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("cloudformation response endpoint returned %s", resp.Status())
	}

	return nil
}
