package identitysvc

import (
	"context"

	"github.com/volunhub/volunhub/core/user"
)

// localService authenticates against the local user directory. It keeps the
// auth endpoints working without a Keycloak instance; browser flow URLs
// point at the frontend's own pages.
type localService struct {
	frontendBaseURL string
	userSvc         *user.Service
}

var _ user.IdentityService = (*localService)(nil)

func NewLocalService(frontendBaseURL string, userSvc *user.Service) user.IdentityService {
	return &localService{
		frontendBaseURL: frontendBaseURL,
		userSvc:         userSvc,
	}
}

func (svc *localService) LoginURL(redirectTarget string) string {
	return svc.frontendBaseURL + "/login?next=" + redirectTarget
}

func (svc *localService) RegisterURL(redirectTarget string) string {
	return svc.frontendBaseURL + "/register?next=" + redirectTarget
}

func (svc *localService) LogoutURL(redirectTarget string) string {
	return redirectTarget
}

func (svc *localService) Authenticate(ctx context.Context, username, password string) (user.Identity, error) {
	usr, err := svc.userSvc.GetByUsernameOrEmail(ctx, username)
	if err != nil {
		if err == user.ErrNotFound {
			return user.Identity{}, ErrInvalidCredentials
		}
		return user.Identity{}, err
	}
	if err := usr.CheckPassword(password); err != nil {
		return user.Identity{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return user.Identity{}, ErrAccountDeactivated
	}
	return user.Identity{
		Subject:           usr.ID,
		Name:              usr.Name,
		PreferredUsername: usr.Username,
		Email:             usr.Email,
		Roles:             []string{usr.Role},
	}, nil
}
