package directory

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/organizations"
)

// Recognized tag keys. Tag state is the single durable record of where an
// account sits in its lifecycle, so every key the controller reads or
// writes is named here and nowhere else.
const (
	TagDelete                 = "Delete"
	TagAccountOwnerGUID       = "AccountOwnerGUID"
	TagEmailForwardingAddress = "AccountEmailForwardingAddress"
	TagProvisionedProductID   = "ServiceCatalogProvisionedProductId"
	TagSSOCreationComplete    = "SSOCreationComplete"
	TagSharedWithOrg          = "SharedWithOrg"
	TagBudgetThreshold        = "BudgetThresholdBeforeDeletion"
	TagScheduledRemovalTime   = "ScheduledRemovalTime"
	TagAccountDeletionTime    = "AccountDeletionTime"
)

// Tags is the set of annotations attached to one account. Keys are
// compared case-insensitively because the console and API writers disagree
// on casing.
type Tags map[string]string

// NewTags converts the SDK tag list into a Tags map.
func NewTags(list []*organizations.Tag) Tags {
	tags := make(Tags, len(list))

	for _, tag := range list {
		if tag == nil {
			continue
		}

		tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}

	return tags
}

// Get returns the value for key, matching case-insensitively.
func (t Tags) Get(key string) (string, bool) {
	if v, ok := t[key]; ok {
		return v, true
	}

	for k, v := range t {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}

// MarkedForDeletion reports whether the account carries Delete=true.
func (t Tags) MarkedForDeletion() bool {
	v, ok := t.Get(TagDelete)
	return ok && strings.EqualFold(v, "true")
}

// OwnerGUID returns the SSO identity of the account requester.
func (t Tags) OwnerGUID() string {
	v, _ := t.Get(TagAccountOwnerGUID)
	return v
}

// ForwardingAddress returns where non-automation email is forwarded.
func (t Tags) ForwardingAddress() string {
	v, _ := t.Get(TagEmailForwardingAddress)
	return v
}

// ProvisionedProductID links the account to its Service Catalog record.
func (t Tags) ProvisionedProductID() string {
	v, _ := t.Get(TagProvisionedProductID)
	return v
}

// SSOCreationComplete reports whether SSO access has been granted.
func (t Tags) SSOCreationComplete() bool {
	v, ok := t.Get(TagSSOCreationComplete)
	return ok && strings.EqualFold(v, "true")
}

// SharedWithOrg reports whether the account is visible to all org members.
func (t Tags) SharedWithOrg() bool {
	v, ok := t.Get(TagSharedWithOrg)
	return ok && strings.EqualFold(v, "true")
}

// BudgetThreshold returns the dollar ceiling that triggers automatic
// deletion, or "" when no cap was requested.
func (t Tags) BudgetThreshold() string {
	v, _ := t.Get(TagBudgetThreshold)
	return v
}

// ScheduledRemovalTime returns the pending removal timer stamp, if any.
// Presence means the account already exited the console-closure phase.
func (t Tags) ScheduledRemovalTime() (time.Time, bool) {
	v, ok := t.Get(TagScheduledRemovalTime)
	if !ok {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}

// DeletionTime returns when console-side closure completed, if it has.
func (t Tags) DeletionTime() (time.Time, bool) {
	v, ok := t.Get(TagAccountDeletionTime)
	if !ok {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}
