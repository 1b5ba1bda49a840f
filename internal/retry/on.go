package retry

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// On classifies which responses and transport errors are worth
// retrying, in the spirit of envoy's x-envoy-retry-on policies.
type On struct {
	_5xx           bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	statusCodes    []int
}

func NewDefaultRetryOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
	}
}

// NewRetryOnFromString parses a comma-separated policy list, e.g.
// "5xx,connect-failure,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, policy := range strings.Split(s, ",") {
		switch strings.TrimSpace(policy) {
		case "5xx":
			o._5xx = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(policy)
			if err != nil {
				return nil, xerrors.Errorf("invalid retryOn: %s", policy)
			}
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o._5xx && code >= 500 && code < 600:
		return true
	case o.gatewayError && (code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout):
		return true
	case o.retriable4xx && code == http.StatusConflict:
		return true
	}
	return slices.Contains(o.statusCodes, code)
}

func (o *On) CheckError(err error) bool {
	if !o.connectFailure && !o._5xx {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	type temporary interface{ Temporary() bool }
	var terr temporary
	return errors.As(err, &terr) && terr.Temporary()
}
