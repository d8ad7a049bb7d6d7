package secretmanager

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awsrequest "github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI

	secrets map[string]string
}

func (s *stubSecretsManager) GetSecretValueWithContext(ctx aws.Context, input *secretsmanager.GetSecretValueInput, opts ...awsrequest.Option) (*secretsmanager.GetSecretValueOutput, error) {
	payload, ok := s.secrets[aws.StringValue(input.SecretId)]
	if !ok {
		return nil, &secretsmanager.ResourceNotFoundException{}
	}

	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(payload)}, nil
}

func TestSecretsService_GetCredentials(t *testing.T) {
	ctx := context.Background()

	stub := &stubSecretsManager{secrets: map[string]string{
		"login": `{"username":"root","password":"hunter2","ccnumber":"4111111111111111","ccmonth":"04","ccyear":"2030","ccname":"Cloud Ops"}`,
		"bare":  `{"username":"root"}`,
	}}

	s := NewSecretsService(stub)

	creds, err := s.GetCredentials(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)
	assert.Equal(t, "4111111111111111", creds.CCNumber)
	assert.Equal(t, "Cloud Ops", creds.CCName)

	_, err = s.GetCredentials(ctx, "bare")
	assert.Error(t, err)

	_, err = s.GetCredentials(ctx, "missing")
	assert.Error(t, err)
}
