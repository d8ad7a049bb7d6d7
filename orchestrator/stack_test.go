package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awsrequest "github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/ssoapp"
)

type stubRuleSetSES struct {
	sesiface.SESAPI

	activated []string
	deleted   []string
}

func (s *stubRuleSetSES) SetActiveReceiptRuleSetWithContext(ctx aws.Context, input *ses.SetActiveReceiptRuleSetInput, opts ...awsrequest.Option) (*ses.SetActiveReceiptRuleSetOutput, error) {
	s.activated = append(s.activated, aws.StringValue(input.RuleSetName))
	return &ses.SetActiveReceiptRuleSetOutput{}, nil
}

func (s *stubRuleSetSES) DeleteReceiptRuleSetWithContext(ctx aws.Context, input *ses.DeleteReceiptRuleSetInput, opts ...awsrequest.Option) (*ses.DeleteReceiptRuleSetOutput, error) {
	s.deleted = append(s.deleted, aws.StringValue(input.RuleSetName))
	return &ses.DeleteReceiptRuleSetOutput{}, nil
}

type stubDescriptorStore struct {
	descriptor *ssoapp.Descriptor
	deletes    int
}

func (s *stubDescriptorStore) Load(ctx context.Context) (*ssoapp.Descriptor, error) {
	if s.descriptor == nil {
		return nil, ssoapp.ErrDescriptorNotFound
	}

	return s.descriptor, nil
}

func (s *stubDescriptorStore) Save(ctx context.Context, d *ssoapp.Descriptor) error {
	s.descriptor = d
	return nil
}

func (s *stubDescriptorStore) Delete(ctx context.Context) error {
	s.deletes++
	s.descriptor = nil

	return nil
}

type stackFixture struct {
	handler     *StackHandler
	console     *stubConsole
	registry    *stubRegistryStore
	descriptors *stubDescriptorStore
	sesStub     *stubRuleSetSES

	responses []stackResponse
	server    *httptest.Server
}

func newStackFixture(t *testing.T) *stackFixture {
	t.Helper()

	f := &stackFixture{
		console:     &stubConsole{},
		registry:    &stubRegistryStore{},
		descriptors: &stubDescriptorStore{},
		sesStub:     &stubRuleSetSES{},
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var resp stackResponse
		require.NoError(t, json.Unmarshal(body, &resp))

		f.responses = append(f.responses, resp)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(f.server.Close)

	cfg := &config.Config{FlowName: "verification-flow"}
	f.handler = NewStackHandler(testLoggerProvider(t), f.console, f.registry, f.descriptors, f.sesStub, cfg)

	return f
}

func (f *stackFixture) request(resourceType, requestType string) []byte {
	raw, _ := json.Marshal(stackRequest{
		RequestType:       requestType,
		ResourceType:      resourceType,
		ResponseURL:       f.server.URL,
		StackID:           "stack-1",
		RequestID:         "req-1",
		LogicalResourceID: "Resource1",
	})

	return raw
}

func TestStackHandlerConnectSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("create activates mail and telephony", func(t *testing.T) {
		f := newStackFixture(t)
		f.console.telephonyRegistry = &connectflow.Registry{PhoneNumber: "+15555550100"}

		require.NoError(t, f.handler.Handle(ctx, f.request(ResourceTypeConnectSetup, "Create")))

		assert.Equal(t, []string{"account-controller"}, f.sesStub.activated)
		require.NotNil(t, f.registry.registry)
		assert.Equal(t, "+15555550100", f.registry.registry.PhoneNumber)

		require.Len(t, f.responses, 1)
		assert.Equal(t, "SUCCESS", f.responses[0].Status)
		assert.Equal(t, "+15555550100", f.responses[0].Data["PhoneNumber"])
	})

	t.Run("delete restores default rule set and tears down", func(t *testing.T) {
		f := newStackFixture(t)

		require.NoError(t, f.handler.Handle(ctx, f.request(ResourceTypeConnectSetup, "Delete")))

		assert.Equal(t, []string{"default-rule-set"}, f.sesStub.activated)
		assert.Equal(t, []string{"account-controller"}, f.sesStub.deleted)
		assert.Contains(t, f.console.teardowns, "telephony")

		require.Len(t, f.responses, 1)
		assert.Equal(t, "SUCCESS", f.responses[0].Status)
	})
}

func TestStackHandlerSSOSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("create persists descriptor", func(t *testing.T) {
		f := newStackFixture(t)
		f.console.ssoDescriptor = &ssoapp.Descriptor{
			SignInURL:  "https://portal.example.com/signin",
			SignOutURL: "https://portal.example.com/signout",
		}

		require.NoError(t, f.handler.Handle(ctx, f.request(ResourceTypeSSOSetup, "Create")))

		require.NotNil(t, f.descriptors.descriptor)

		require.Len(t, f.responses, 1)
		assert.Equal(t, "SUCCESS", f.responses[0].Status)
		assert.Equal(t, "https://portal.example.com/signin", f.responses[0].Data["SignInUrl"])
	})

	t.Run("delete removes descriptor", func(t *testing.T) {
		f := newStackFixture(t)
		f.descriptors.descriptor = &ssoapp.Descriptor{SignInURL: "https://portal.example.com/signin"}

		require.NoError(t, f.handler.Handle(ctx, f.request(ResourceTypeSSOSetup, "Delete")))

		assert.Equal(t, 1, f.descriptors.deletes)
		assert.Contains(t, f.console.teardowns, "sso")
	})
}

func TestStackHandlerReportsFailure(t *testing.T) {
	ctx := context.Background()
	f := newStackFixture(t)

	err := f.handler.Handle(ctx, f.request("Custom::Unknown", "Create"))
	require.Error(t, err)

	require.Len(t, f.responses, 1)
	assert.Equal(t, "FAILED", f.responses[0].Status)
	assert.Contains(t, f.responses[0].Reason, "unknown resource type")
}

func TestStackHandlerUpdateIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newStackFixture(t)

	require.NoError(t, f.handler.Handle(ctx, f.request(ResourceTypeConnectSetup, "Update")))

	assert.Empty(t, f.sesStub.activated)
	assert.Empty(t, f.console.teardowns)

	require.Len(t, f.responses, 1)
	assert.Equal(t, "SUCCESS", f.responses[0].Status)
	assert.Equal(t, fmt.Sprintf("%s-%s", ResourceTypeConnectSetup, "Resource1"), f.responses[0].PhysicalResourceID)
}
