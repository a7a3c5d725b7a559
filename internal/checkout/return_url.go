package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidReturnURL = errors.New("return_url is not an allowed destination")

// ReturnURLValidator accepts absolute http(s) URLs whose origin is on the
// whitelist. Matching is on scheme and host (including port) only.
type ReturnURLValidator struct {
	origins map[string]struct{}
}

func NewReturnURLValidator(allowedOrigins []string) (*ReturnURLValidator, error) {
	v := &ReturnURLValidator{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, raw := range allowedOrigins {
		origin, err := parseOrigin(raw)
		if err != nil {
			return nil, fmt.Errorf("allowed return origin %q: %w", raw, err)
		}
		v.origins[origin] = struct{}{}
	}
	return v, nil
}

// Validate returns the URL unchanged when allowed. An empty string is
// allowed and means no redirect.
func (v *ReturnURLValidator) Validate(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	origin, err := parseOrigin(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReturnURL, err)
	}
	if _, ok := v.origins[origin]; !ok {
		return "", ErrInvalidReturnURL
	}
	return raw, nil
}

func parseOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" || u.User != nil {
		return "", errors.New("must be an absolute URL without credentials")
	}
	return scheme + "://" + strings.ToLower(u.Host), nil
}
