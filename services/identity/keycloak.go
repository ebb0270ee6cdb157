// Package identitysvc wraps the identity provider behind
// user.IdentityService: Keycloak in deployed environments, the local
// directory for development and tests.
package identitysvc

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/user"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type keycloakService struct {
	baseURL  string
	realm    string
	oauthCfg oauth2.Config
}

var _ user.IdentityService = (*keycloakService)(nil)

func NewKeycloakService(conf *core.Config) user.IdentityService {
	base := fmt.Sprintf("%s/realms/%s/protocol/openid-connect", conf.Identity.BaseURL, conf.Identity.Realm)
	return &keycloakService{
		baseURL: conf.Identity.BaseURL,
		realm:   conf.Identity.Realm,
		oauthCfg: oauth2.Config{
			ClientID:     conf.Identity.ClientID,
			ClientSecret: conf.Identity.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/auth",
				TokenURL: base + "/token",
			},
		},
	}
}

func (svc *keycloakService) endpointURL(path string, params url.Values) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s?%s", svc.baseURL, svc.realm, path, params.Encode())
}

func (svc *keycloakService) LoginURL(redirectTarget string) string {
	return svc.endpointURL("auth", url.Values{
		"client_id":     {svc.oauthCfg.ClientID},
		"redirect_uri":  {redirectTarget},
		"response_type": {"code"},
		"scope":         {"openid"},
		"state":         {uuid.New().String()},
	})
}

func (svc *keycloakService) RegisterURL(redirectTarget string) string {
	return svc.endpointURL("registrations", url.Values{
		"client_id":     {svc.oauthCfg.ClientID},
		"redirect_uri":  {redirectTarget},
		"response_type": {"code"},
		"scope":         {"openid"},
	})
}

func (svc *keycloakService) LogoutURL(redirectTarget string) string {
	return svc.endpointURL("logout", url.Values{
		"client_id":                {svc.oauthCfg.ClientID},
		"post_logout_redirect_uri": {redirectTarget},
	})
}

// Authenticate exchanges credentials for a token via the resource owner
// password grant, then reads the identity off the access token claims. The
// token signature is the provider's concern; it was just issued over TLS.
func (svc *keycloakService) Authenticate(ctx context.Context, username, password string) (user.Identity, error) {
	token, err := svc.oauthCfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		if rErr, ok := err.(*oauth2.RetrieveError); ok && rErr.Response != nil && rErr.Response.StatusCode == 401 {
			return user.Identity{}, ErrInvalidCredentials
		}
		return user.Identity{}, core.NewRemoteError("authenticating", err)
	}
	return parseIdentity(token.AccessToken)
}

func parseIdentity(accessToken string) (user.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims); err != nil {
		return user.Identity{}, pkgerrors.Wrap(err, "parsing access token")
	}

	ident := user.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		ident.Subject = sub
	}
	if name, ok := claims["name"].(string); ok {
		ident.Name = name
	}
	if uname, ok := claims["preferred_username"].(string); ok {
		ident.PreferredUsername = uname
	}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := ra["roles"].([]interface{}); ok {
			for _, r := range roles {
				if role, ok := r.(string); ok {
					ident.Roles = append(ident.Roles, role)
				}
			}
		}
	}
	return ident, nil
}
