// Package ssoapp persists the SSO application descriptor written by
// the identity-center setup procedure and read by the portal.
package ssoapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

var ErrDescriptorNotFound = errors.New("sso application descriptor is not set")

// Descriptor carries everything the portal needs to validate SAML
// responses and to send users to the identity provider.
type Descriptor struct {
	SignInURL          string `json:"SignInURL"`
	SignOutURL         string `json:"SignOutURL"`
	Certificate        string `json:"Certificate"`
	SSOManagerAppName  string `json:"SSOManagerAppName"`
	APIGatewayEndpoint string `json:"APIGatewayEndpoint"`
}

//go:generate mockery --name IDescriptorStore --output ./mocks
type IDescriptorStore interface {
	Load(ctx context.Context) (*Descriptor, error)
	Save(ctx context.Context, d *Descriptor) error
	Delete(ctx context.Context) error
}

type DescriptorStore struct {
	client        ssmiface.SSMAPI
	parameterName string
}

func NewDescriptorStore(client ssmiface.SSMAPI, parameterName string) *DescriptorStore {
	return &DescriptorStore{client: client, parameterName: parameterName}
}

func (s *DescriptorStore) Load(ctx context.Context) (*Descriptor, error) {
	out, err := s.client.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name: aws.String(s.parameterName),
	})
	if err != nil {
		var notFound *ssm.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, ErrDescriptorNotFound
		}

		return nil, err
	}

	var d Descriptor

	if err := json.Unmarshal([]byte(aws.StringValue(out.Parameter.Value)), &d); err != nil {
		return nil, fmt.Errorf("decoding sso descriptor: %w", err)
	}

	return &d, nil
}

func (s *DescriptorStore) Save(ctx context.Context, d *Descriptor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}

	_, err = s.client.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName),
		Type:      aws.String(ssm.ParameterTypeString),
		Value:     aws.String(string(raw)),
		Overwrite: aws.Bool(true),
	})

	return err
}

func (s *DescriptorStore) Delete(ctx context.Context) error {
	_, err := s.client.DeleteParameterWithContext(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(s.parameterName),
	})
	if err != nil {
		var notFound *ssm.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil
		}

		return err
	}

	return nil
}
