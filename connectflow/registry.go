package connectflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

var (
	ErrRegistryNotInitialized = errors.New("voice registry parameter is not set")
	ErrCodeNotSet             = errors.New("no verification code is registered")
	ErrInvalidCode            = errors.New("verification code must be at least four digits")
)

// Registry maps digits to uploaded prompt IDs and records the claimed
// phone number plus the verification code currently awaiting playback.
type Registry struct {
	Prompts     [10]string
	PhoneNumber string
	Code        string
}

type registryDocument map[string]string

func (r Registry) MarshalJSON() ([]byte, error) {
	doc := registryDocument{
		"PHONE_NUMBER": r.PhoneNumber,
		"CODE":         r.Code,
	}

	for i, id := range r.Prompts {
		doc[fmt.Sprintf("PROMPT_%d", i)] = id
	}

	return json.Marshal(doc)
}

func (r *Registry) UnmarshalJSON(raw []byte) error {
	var doc registryDocument

	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	r.PhoneNumber = doc["PHONE_NUMBER"]
	r.Code = doc["CODE"]

	for i := range r.Prompts {
		r.Prompts[i] = doc[fmt.Sprintf("PROMPT_%d", i)]
	}

	return nil
}

// PromptResponse is returned to the contact flow's lambda step; each
// field names the recording for one digit of the active code.
type PromptResponse struct {
	Prompt1 string `json:"prompt1"`
	Prompt2 string `json:"prompt2"`
	Prompt3 string `json:"prompt3"`
	Prompt4 string `json:"prompt4"`
}

// PromptsForCode resolves the first four digits of the active code to
// their prompt IDs.
func (r Registry) PromptsForCode() (*PromptResponse, error) {
	if r.Code == "" {
		return nil, ErrCodeNotSet
	}

	if len(r.Code) < 4 {
		return nil, ErrInvalidCode
	}

	var ids [4]string

	for i := 0; i < 4; i++ {
		d := r.Code[i]
		if d < '0' || d > '9' {
			return nil, ErrInvalidCode
		}

		ids[i] = r.Prompts[d-'0']
	}

	return &PromptResponse{
		Prompt1: ids[0],
		Prompt2: ids[1],
		Prompt3: ids[2],
		Prompt4: ids[3],
	}, nil
}

//go:generate mockery --name IRegistryStore --output ./mocks
type IRegistryStore interface {
	Load(ctx context.Context) (*Registry, error)
	Save(ctx context.Context, reg *Registry) error
	SetCode(ctx context.Context, code string) error
}

// RegistryStore persists the registry as a single SSM parameter so the
// flow lookup and the verification procedure share it across runs.
type RegistryStore struct {
	client        ssmiface.SSMAPI
	parameterName string
}

func NewRegistryStore(client ssmiface.SSMAPI, parameterName string) *RegistryStore {
	return &RegistryStore{client: client, parameterName: parameterName}
}

func (s *RegistryStore) Load(ctx context.Context) (*Registry, error) {
	out, err := s.client.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name: aws.String(s.parameterName),
	})
	if err != nil {
		var notFound *ssm.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, ErrRegistryNotInitialized
		}

		return nil, err
	}

	var reg Registry

	if err := json.Unmarshal([]byte(aws.StringValue(out.Parameter.Value)), &reg); err != nil {
		return nil, fmt.Errorf("decoding registry parameter: %w", err)
	}

	return &reg, nil
}

func (s *RegistryStore) Save(ctx context.Context, reg *Registry) error {
	raw, err := json.Marshal(reg)
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

// SetCode stores a fresh verification code without touching the prompt
// and phone fields.
func (s *RegistryStore) SetCode(ctx context.Context, code string) error {
	reg, err := s.Load(ctx)
	if err != nil {
		return err
	}

	reg.Code = code

	return s.Save(ctx, reg)
}
