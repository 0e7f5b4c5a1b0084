package client

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Auth flows supported against the backend.
const (
	AuthNone              = ""
	AuthBearer            = "bearer"
	AuthBasic             = "basic"
	AuthClientCredentials = "client_credentials"
	AuthPassword          = "password"
)

// Credentials describe how the client authenticates to the backend.
type Credentials struct {
	Flow         string   `yaml:"flow" mapstructure:"flow"`
	Token        string   `yaml:"token,omitempty" mapstructure:"token"`
	TokenURL     string   `yaml:"token_url,omitempty" mapstructure:"token_url"`
	ClientID     string   `yaml:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret,omitempty" mapstructure:"client_secret"`
	Scopes       []string `yaml:"scopes,omitempty" mapstructure:"scopes"`
	Username     string   `yaml:"username,omitempty" mapstructure:"username"`
	Password     string   `yaml:"password,omitempty" mapstructure:"password"`
}

// HTTPClient returns an *http.Client that authenticates every request. base
// supplies the timeout and transport; it is not modified.
func (c Credentials) HTTPClient(ctx context.Context, base *http.Client) (*http.Client, error) {
	if base == nil {
		base = &http.Client{Timeout: DefaultTimeout}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	var client *http.Client
	switch c.Flow {
	case AuthNone:
		return base, nil

	case AuthBearer:
		if c.Token == "" {
			return nil, fmt.Errorf("bearer auth requires a token")
		}
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"}))

	case AuthBasic:
		if c.Username == "" {
			return nil, fmt.Errorf("basic auth requires a username")
		}
		transport := base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		cp := *base
		cp.Transport = &basicTransport{username: c.Username, password: c.Password, next: transport}
		return &cp, nil

	case AuthClientCredentials:
		if err := c.requireClient(); err != nil {
			return nil, err
		}
		config := clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			Scopes:       c.Scopes,
		}
		client = config.Client(ctx)

	case AuthPassword:
		if err := c.requireClient(); err != nil {
			return nil, err
		}
		if c.Username == "" || c.Password == "" {
			return nil, fmt.Errorf("password flow requires username and password")
		}
		config := oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: c.TokenURL},
			Scopes:       c.Scopes,
		}
		token, err := config.PasswordCredentialsToken(ctx, c.Username, c.Password)
		if err != nil {
			return nil, fmt.Errorf("OAuth2 password flow failed: %w", err)
		}
		client = config.Client(ctx, token)

	default:
		return nil, fmt.Errorf("unknown auth flow '%s' (supported: bearer, basic, client_credentials, password)", c.Flow)
	}

	client.Timeout = base.Timeout
	return client, nil
}

func (c Credentials) requireClient() error {
	if c.TokenURL == "" {
		return fmt.Errorf("'token_url' is required for %s", c.Flow)
	}
	if c.ClientID == "" {
		return fmt.Errorf("'client_id' is required for %s", c.Flow)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("'client_secret' is required for %s", c.Flow)
	}
	return nil
}

type basicTransport struct {
	username, password string
	next               http.RoundTripper
}

func (t *basicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(r)
}
