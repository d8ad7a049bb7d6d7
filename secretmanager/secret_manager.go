// Package secretmanager fetches console sign-in credentials from AWS
// Secrets Manager. Secrets are read per run and never written to tags,
// logs, or any other durable location.
package secretmanager

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

// Credentials holds the root console password and payment card details
// used by the signup and closure procedures.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	CCNumber string `json:"ccnumber"`
	CCMonth  string `json:"ccmonth"`
	CCYear   string `json:"ccyear"`
	CCName   string `json:"ccname"`
}

//go:generate mockery --name ISecretsService --output ./mocks
type ISecretsService interface {
	GetCredentials(ctx context.Context, secretID string) (*Credentials, error)
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

type SecretsService struct {
	client secretsmanageriface.SecretsManagerAPI
}

func NewSecretsService(client secretsmanageriface.SecretsManagerAPI) *SecretsService {
	return &SecretsService{client: client}
}

// GetCredentials fetches and decodes the login secret. The caller must
// not persist the returned value beyond the current run.
func (s *SecretsService) GetCredentials(ctx context.Context, secretID string) (*Credentials, error) {
	payload, err := s.GetSecretString(ctx, secretID)
	if err != nil {
		return nil, err
	}

	var creds Credentials

	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return nil, fmt.Errorf("decoding secret %s: %w", secretID, err)
	}

	if creds.Password == "" {
		return nil, fmt.Errorf("secret %s has no password field", secretID)
	}

	return &creds, nil
}

func (s *SecretsService) GetSecretString(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", err
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has a binary payload", secretID)
	}

	return *out.SecretString, nil
}
