package graphql

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// CookieStore keeps cookies between runs.
type CookieStore interface {
	LoadCookies(host string) ([]*http.Cookie, error)
	SaveCookies(host string, cookies []*http.Cookie) error
}

// CookieContext is the session context for cookie-based remotes: the
// remote recognizes a returning client by the cookies in its jar.
type CookieContext struct {
	id  string
	jar *cookiejar.Jar
}

// NewCookieContext creates a context with an empty jar.
func NewCookieContext() *CookieContext {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &CookieContext{
		id:  uuid.NewString(),
		jar: jar,
	}
}

// ID identifies the context in logs.
func (c *CookieContext) ID() string {
	return c.id
}

// CookieJar returns the jar handed to the transport.
func (c *CookieContext) CookieJar() http.CookieJar {
	return c.jar
}

// Restore loads the cookies saved for endpoint into the jar.
func (c *CookieContext) Restore(store CookieStore, endpoint string) error {
	u, err := cookieURL(endpoint)
	if err != nil {
		return err
	}
	cookies, err := store.LoadCookies(u.Host)
	if err != nil {
		return fmt.Errorf("restoring cookies: %w", err)
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(u, cookies)
	}
	return nil
}

// Persist saves the jar's cookies for endpoint. The jar only reports names
// and values, so cookies come back as session cookies scoped to the
// endpoint.
func (c *CookieContext) Persist(store CookieStore, endpoint string) error {
	u, err := cookieURL(endpoint)
	if err != nil {
		return err
	}
	if err := store.SaveCookies(u.Host, c.jar.Cookies(u)); err != nil {
		return fmt.Errorf("persisting cookies: %w", err)
	}
	return nil
}

// cookieURL maps ws endpoints to their http equivalent so both transports
// share one jar entry.
func cookieURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u, nil
}
