package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"ex-wechaty/pkg/puppet"
)

// ErrInvalidToken indicates that endpoint discovery does not know the token.
var ErrInvalidToken = errors.New("service driver: invalid token")

const maxDiscoveryBody = 64 << 10

// discoverEndpoint resolves token to a host:port through the discovery service.
func discoverEndpoint(ctx context.Context, client *http.Client, discoveryURL string, token string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		discoveryURL+"/"+url.PathEscape(token),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("discover endpoint: new request: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		return "", fmt.Errorf("discover endpoint: %w", puppet.NetworkError("discover_endpoint", err))
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDiscoveryBody))
	if err != nil {
		return "", fmt.Errorf("discover endpoint: %w", puppet.NetworkError("discover_endpoint", err))
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf(
			"discover endpoint: %w",
			&puppet.RemoteError{
				Operation: "discover_endpoint",
				Kind:      puppet.RemoteErrorKindNetwork,
				Code:      response.StatusCode,
				Cause:     fmt.Errorf("unexpected status %s", response.Status),
			},
		)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("discover endpoint: malformed response")
	}

	host := gjson.GetBytes(body, "ip").String()
	port := gjson.GetBytes(body, "port").Int()
	if port == 0 || host == "" {
		return "", fmt.Errorf("discover endpoint: %w", ErrInvalidToken)
	}

	return net.JoinHostPort(host, strconv.FormatInt(port, 10)), nil
}
