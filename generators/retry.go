package generators

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/reusee/taitrace/logs"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

var (
	maxRetries   = 3
	retryBackoff = 500 * time.Millisecond
)

func doWithRetry[T any](
	ctx context.Context,
	logger logs.Logger,
	fn func() (T, error),
) (ret T, err error) {
	for i := range maxRetries {
		ret, err = fn()
		if err == nil {
			return
		}
		if isRetryable(err) && i < maxRetries-1 {
			logger.WarnContext(ctx, "retry",
				"attempt", i+1, "error", err,
			)
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case <-time.After(retryBackoff * time.Duration(1<<i)):
			}
			continue
		}
		return ret, err
	}
	return
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrRetryable) {
		return true
	}
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.HTTPStatusCode)
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return retryableStatus(requestErr.HTTPStatusCode)
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}
	var ollamaErr *OllamaError
	if errors.As(err, &ollamaErr) {
		return retryableStatus(ollamaErr.StatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusBadGateway
}
