package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// NormalizeError rewrites provider and transport errors into messages that carry the
// retry keywords the regeneration policy matches on (timeout, network, rate_limit,
// service_unavailable, internal_error). Unknown errors keep their original text.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return normalizeAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return normalizeAPIError(*apiErrPtr)
	}

	switch {
	case errors.Is(err, ErrUnavailable):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "canceled: " + err.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "network timeout: " + err.Error()
		}
		return "network error: " + err.Error()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "network error: " + err.Error()
	}

	return err.Error()
}

func normalizeAPIError(e genai.APIError) string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	switch {
	case e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED":
		return fmt.Sprintf("rate_limit (%d): %s", e.Code, msg)
	case e.Code == http.StatusServiceUnavailable || e.Status == "UNAVAILABLE":
		return fmt.Sprintf("service_unavailable (%d): %s", e.Code, msg)
	case e.Code == http.StatusGatewayTimeout || e.Status == "DEADLINE_EXCEEDED":
		return fmt.Sprintf("timeout (%d): %s", e.Code, msg)
	case e.Code == http.StatusInternalServerError || e.Status == "INTERNAL":
		return fmt.Sprintf("internal_error (%d): %s", e.Code, msg)
	case e.Code >= 500:
		return fmt.Sprintf("service_unavailable (%d): %s", e.Code, msg)
	}
	if strings.TrimSpace(e.Status) != "" {
		return fmt.Sprintf("%s (%d): %s", strings.ToLower(e.Status), e.Code, msg)
	}
	return fmt.Sprintf("provider error (%d): %s", e.Code, msg)
}
