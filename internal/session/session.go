package session

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("vCenter rejected the credentials")

type Credentials struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Insecure bool   `json:"insecure"`
}

// Session is an authenticated connection to a vCenter SDK endpoint.
type Session struct {
	Client  *vim25.Client
	manager *session.Manager
}

// ParseURL validates the vCenter url, defaulting the path to /sdk, and
// attaches the credentials to it.
func ParseURL(credentials Credentials) (*url.URL, error) {
	u, err := url.ParseRequestURI(credentials.URL)
	if err != nil {
		return nil, err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/sdk"
	}
	u.User = url.UserPassword(credentials.Username, credentials.Password)
	return u, nil
}

// Login opens a session. Wrong credentials are reported as ErrUnauthorized.
func Login(ctx context.Context, credentials Credentials) (*Session, error) {
	u, err := ParseURL(credentials)
	if err != nil {
		return nil, errors.Wrap(err, "invalid vCenter url")
	}

	vimClient, err := vim25.NewClient(ctx, soap.NewClient(u, credentials.Insecure))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", u.Host)
	}
	manager := session.NewManager(vimClient)

	zap.S().Named("session").Infow("logging into vCenter", "host", u.Host, "user", credentials.Username)
	if err := manager.Login(ctx, u.User); err != nil {
		// production and simulator word the failure differently
		if strings.Contains(err.Error(), "Login failure") ||
			strings.Contains(err.Error(), "incorrect") && strings.Contains(err.Error(), "password") {
			return nil, errors.Wrap(ErrUnauthorized, err.Error())
		}
		return nil, errors.Wrapf(err, "failed to log into %s", u.Host)
	}

	return &Session{Client: vimClient, manager: manager}, nil
}

func (s *Session) Logout(ctx context.Context) error {
	defer s.Client.CloseIdleConnections()
	if err := s.manager.Logout(ctx); err != nil {
		return errors.Wrap(err, "failed to log out")
	}
	return nil
}
