// Package captcha decodes console CAPTCHA challenges. Solvers are
// best-effort and wrong often enough that every caller goes through the
// bounded retry protocol in Gate.
package captcha

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/go-resty/resty/v2"

	"github.com/orgfoundry/account-controller/framework/connection"
	"github.com/orgfoundry/account-controller/logger"
)

var (
	// ErrNoGuess means the solver produced nothing usable for this image;
	// the caller should refresh the challenge and try again.
	ErrNoGuess = errors.New("captcha: no guess produced for image")
)

// challenge codes are always six characters
const codeLength = 6

//go:generate mockery --name Solver --output ./mocks
type Solver interface {
	Solve(ctx context.Context, imageURL string) (string, error)
}

// RekognitionSolver decodes a challenge with text detection. Cheap and
// fast, but only right about half the time.
type RekognitionSolver struct {
	loggerProvider logger.Provider
	client         rekognitioniface.RekognitionAPI
	http           *resty.Client
}

func NewRekognitionSolver(loggerProvider logger.Provider, conn *connection.Connection) *RekognitionSolver {
	return &RekognitionSolver{
		loggerProvider: loggerProvider,
		client:         conn.Rekognition,
		http:           resty.New(),
	}
}

func (s *RekognitionSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	l := s.loggerProvider(ctx)

	resp, err := s.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", err
	}

	out, err := s.client.DetectTextWithContext(ctx, &rekognition.DetectTextInput{
		Image: &rekognition.Image{
			Bytes: resp.Body(),
		},
	})
	if err != nil {
		return "", err
	}

	for _, detection := range out.TextDetections {
		if detection.DetectedText == nil {
			continue
		}

		text := strings.ReplaceAll(*detection.DetectedText, " ", "")
		if len(text) == codeLength {
			l.Debugf("rekognition solver guessed %q", text)
			return text, nil
		}
	}

	return "", ErrNoGuess
}
