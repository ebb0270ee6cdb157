package user

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/volunhub/volunhub/core"
)

// fakeRepo is a minimal in-memory Repository for service tests.
type fakeRepo struct {
	pkCount int
	users   map[string]User
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]User)}
}

func (repo *fakeRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error {
	excluded := func(usr User) bool {
		for _, ex := range excludedUsers {
			if ex.ID == usr.ID {
				return true
			}
		}
		return false
	}
	for _, usr := range repo.users {
		if excluded(usr) {
			continue
		}
		if username != "" && usr.Username == username {
			return ErrUsernameExists
		}
		if usr.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (repo *fakeRepo) CreateUser(ctx context.Context, usr User) (User, error) {
	if usr.ID == "" {
		repo.pkCount++
		usr.ID = strconv.Itoa(repo.pkCount)
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeRepo) QueryAllUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0, len(repo.users))
	for _, usr := range repo.users {
		users = append(users, usr)
	}
	return users, nil
}

func (repo *fakeRepo) GetUserByID(ctx context.Context, id string) (User, error) {
	usr, ok := repo.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (repo *fakeRepo) GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error) {
	for _, usr := range repo.users {
		if usr.Username == username || usr.Email == username {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepo) FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error) {
	return repo.QueryAllUsers(ctx)
}

func (repo *fakeRepo) UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error) {
	stored, ok := repo.users[usr.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	if usr.Name != "" {
		stored.Name = usr.Name
	}
	if usr.Username != "" {
		stored.Username = usr.Username
	}
	if usr.Email != "" {
		stored.Email = usr.Email
	}
	if usr.Role != "" {
		stored.Role = usr.Role
	}
	if usr.PasswordHash != nil {
		stored.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		stored.IsActive = *isActive
	}
	stored.UpdatedAt = usr.UpdatedAt
	repo.users[stored.ID] = stored
	return stored, nil
}

func (repo *fakeRepo) UpdateOrCreateUser(ctx context.Context, usr User) (User, error) {
	if _, ok := repo.users[usr.ID]; ok {
		return repo.UpdateUser(ctx, usr, nil)
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *fakeRepo) DeleteUsersByID(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		delete(repo.users, id)
	}
	return nil
}

func TestServiceSyncIdentity(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	ident := Identity{
		Subject:           "kc-123",
		Name:              "Иван Петров",
		PreferredUsername: "Ivan",
		Email:             "Ivan@Test.RU",
		Roles:             []string{RoleVolunteer},
	}

	// unknown subject creates a mirror record
	usr, err := svc.SyncIdentity(ctx, ident)
	assert.NoError(t, err)
	assert.Equal(t, "kc-123", usr.ID)
	assert.Equal(t, "Иван Петров", usr.Name)
	assert.Equal(t, "ivan", usr.Username)
	assert.Equal(t, "ivan@test.ru", usr.Email)
	assert.Equal(t, RoleVolunteer, usr.Role)
	assert.True(t, usr.IsActive)

	// a later sync updates in place
	ident.Roles = []string{RoleOrganizer}
	usr, err = svc.SyncIdentity(ctx, ident)
	assert.NoError(t, err)
	assert.Equal(t, RoleOrganizer, usr.Role)

	users, err := svc.QueryAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestServiceSyncIdentity_nameFallback(t *testing.T) {
	svc := NewService(newFakeRepo())

	usr, err := svc.SyncIdentity(context.Background(), Identity{
		Subject:           "kc-456",
		PreferredUsername: "ivan",
		Email:             "ivan@test.ru",
		Roles:             []string{RoleVolunteer},
	})
	assert.NoError(t, err)
	assert.Equal(t, "ivan", usr.Name)
}

func TestNewUserValidate_uniqueness(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	nu := NewUser{
		Name:            "Иван Петров",
		Username:        "ivan77",
		Email:           "ivan@test.ru",
		Role:            RoleVolunteer,
		Password:        "LePassword",
		PasswordConfirm: "LePassword",
	}
	assert.NoError(t, nu.Validate(svc))
	_, err := svc.Create(ctx, nu)
	assert.NoError(t, err)

	// duplicate email maps to a field error
	dup := nu
	dup.Username = "notivan"
	err = dup.Validate(svc)
	if vErr, ok := err.(*core.ValidationError); assert.True(t, ok, "want *core.ValidationError; got %v", err) {
		assert.Equal(t, "email", vErr.Fields[0].Field)
	}

	// duplicate username too
	dup = nu
	dup.Email = "other@test.ru"
	err = dup.Validate(svc)
	if vErr, ok := err.(*core.ValidationError); assert.True(t, ok, "want *core.ValidationError; got %v", err) {
		assert.Equal(t, "username", vErr.Fields[0].Field)
	}
}

func TestUpdateUserValidate_excludesSelf(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	usr, err := svc.Create(ctx, NewUser{
		Name: "Иван Петров", Username: "ivan77", Email: "ivan@test.ru",
		Role: RoleVolunteer, Password: "LePassword", PasswordConfirm: "LePassword",
	})
	assert.NoError(t, err)

	// re-submitting the user's own username and email passes
	uu := UpdateUser{Username: "ivan77", Email: "ivan@test.ru"}
	assert.NoError(t, uu.Validate(usr, svc))
	assert.Equal(t, "Иван Петров", uu.Name) // blank fields fall back to the original
	assert.Equal(t, RoleVolunteer, uu.Role)
}

func TestServiceSetPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	usr, err := svc.Create(ctx, NewUser{
		Name: "Иван Петров", Username: "ivan77", Email: "ivan@test.ru",
		Role: RoleVolunteer, Password: "LePassword", PasswordConfirm: "LePassword",
	})
	assert.NoError(t, err)

	usr, err = svc.SetPassword(ctx, usr.ID, "NewPassword")
	assert.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("NewPassword"))
	assert.Error(t, usr.CheckPassword("LePassword"))
}

func TestServiceSetActive(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	usr, err := svc.Create(ctx, NewUser{
		Name: "Иван Петров", Username: "ivan77", Email: "ivan@test.ru",
		Role: RoleVolunteer, Password: "LePassword", PasswordConfirm: "LePassword",
	})
	assert.NoError(t, err)
	assert.True(t, usr.IsActive)

	usr, err = svc.SetActive(ctx, usr.ID, false)
	assert.NoError(t, err)
	assert.False(t, usr.IsActive)
}
