package common

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	CtxKeys struct {
		Email     string
		OwnerGUID string
		Name      string
	}

	// AccountID is the management account this controller runs in.
	AccountID string

	// Region is the home region for console automation and control-plane clients.
	Region string

	Env string

	// Production flag indicating if the controller is driving the live organization.
	Production bool

	// IsLocalhost flag indicating if app is running on localhost
	IsLocalhost bool
)

const (
	DayDuration = 24 * time.Hour

	// GracePeriod is the minimum membership duration Organizations enforces
	// before a member account may be removed.
	GracePeriod = 7 * DayDuration

	// GraceBuffer is added past the threshold so the removal call never
	// races the service-side clock.
	GraceBuffer = 2 * time.Minute
)

func initEnvVariables() {
	AccountID = GetEnv("ACCOUNTID", "")
	Region = GetEnv("AWS_REGION", "us-east-1")
	IsLocalhost = gin.Mode() != gin.ReleaseMode

	switch GetEnv("ENV", "development") {
	case "production":
		Env = "production"
		Production = true
	default:
		Env = "development"
		Production = false
	}
}

func init() {
	initEnvVariables()

	CtxKeys.Email = "email"
	CtxKeys.OwnerGUID = "ownerGuid"
	CtxKeys.Name = "name"
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
