package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/orgfoundry/account-controller/logger"
)

const (
	submitURL = "http://2captcha.com/in.php"
	resultURL = "http://2captcha.com/res.php"

	resultPollInterval = 5 * time.Second
	resultPollAttempts = 20
)

var ErrSolveTimeout = errors.New("captcha: solving service did not answer in time")

// TwoCaptchaSolver submits the challenge to the human-solving queue and
// polls for the answer.
type TwoCaptchaSolver struct {
	loggerProvider logger.Provider
	apiKey         string
	http           *resty.Client
}

func NewTwoCaptchaSolver(loggerProvider logger.Provider, apiKey string) *TwoCaptchaSolver {
	return &TwoCaptchaSolver{
		loggerProvider: loggerProvider,
		apiKey:         apiKey,
		http:           resty.New(),
	}
}

func (s *TwoCaptchaSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	l := s.loggerProvider(ctx)

	img, err := s.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", err
	}

	submit, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"key":    s.apiKey,
			"method": "base64",
			"body":   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.Body()),
		}).
		Post(submitURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(submit.String(), "|")
	ref := parts[len(parts)-1]

	l.Debugf("submitted captcha, reference %s", ref)

	for attempt := 0; attempt < resultPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(resultPollInterval):
		}

		result, err := s.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":    s.apiKey,
				"action": "get",
				"id":     ref,
			}).
			Get(resultURL)
		if err != nil {
			return "", err
		}

		body := result.String()
		if strings.HasPrefix(body, "OK") {
			answer := body[strings.LastIndex(body, "|")+1:]
			return answer, nil
		}

		if body != "CAPCHA_NOT_READY" {
			return "", fmt.Errorf("captcha: solving service error: %s", body)
		}
	}

	return "", ErrSolveTimeout
}
