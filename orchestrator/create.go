package orchestrator

import (
	"context"

	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/servicecatalog"
)

// CreateAccountResult reports where the new account landed.
type CreateAccountResult struct {
	AccountID    string `json:"accountId"`
	AccountName  string `json:"accountName"`
	AccountEmail string `json:"accountEmail"`
}

// CreateAccount provisions a member account and stamps the lifecycle
// tags that every later event keys off. With factory mode on, creation
// goes through the catalog product so Control Tower enrolls the
// account; otherwise the org API creates it directly.
func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest, ownerGUID string) (*CreateAccountResult, error) {
	l := s.loggerProvider(ctx)

	if reason, ok := req.Validate(s.cfg.SpendCapCeiling); !ok {
		return nil, &ValidationError{Reason: reason}
	}

	tags := directory.Tags{
		directory.TagAccountOwnerGUID:    ownerGUID,
		directory.TagSSOCreationComplete: "false",
	}

	if req.SpendCap != "" {
		tags[directory.TagBudgetThreshold] = req.SpendCap
	}

	if req.ShareWithOrg {
		tags[directory.TagSharedWithOrg] = "true"
	}

	if req.ForwardingAddress != "" {
		tags[directory.TagEmailForwardingAddress] = req.ForwardingAddress
	}

	var accountID string

	if s.cfg.FactoryMode {
		ppID, err := s.factory.ProvisionAccount(ctx, servicecatalog.ProvisionRequest{
			AccountName:  req.Name,
			AccountEmail: req.Email,
			OwnerEmail:   req.ForwardingAddress,
		})
		if err != nil {
			return nil, err
		}

		account, err := s.factory.WaitForAccount(ctx, req.Email)
		if err != nil {
			return nil, err
		}

		accountID = account.ID
		tags[directory.TagProvisionedProductID] = ppID
	} else {
		id, err := s.dir.CreateAccount(ctx, req.Name, req.Email)
		if err != nil {
			return nil, err
		}

		accountID = id
	}

	if err := s.dir.SetTags(ctx, accountID, tags); err != nil {
		return nil, err
	}

	l.Infof("created account %s (%s) for owner %s", accountID, req.Email, ownerGUID)

	return &CreateAccountResult{
		AccountID:    accountID,
		AccountName:  req.Name,
		AccountEmail: req.Email,
	}, nil
}
