package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/docrepo"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

type mailbox struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (mb *mailbox) SendMessages(messages ...*core.EmailMessage) {
	mb.mu.Lock()
	mb.sent = append(mb.sent, messages...)
	mb.mu.Unlock()
}

func setup(t *testing.T) (*user.Service, *mailbox) {
	mb := &mailbox{}
	svc := user.NewService(docrepo.NewUserRepository(inmemstore.New()), mb, core.NewTestConfig())
	return svc, mb
}

func createUser(t *testing.T, svc *user.Service, centerID, name, uname, email string, roles ...string) user.User {
	usr, err := svc.Create(context.Background(), centerID, user.NewUser{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: "p@ssword",
		Roles:    roles,
	})
	require.NoError(t, err)
	return usr
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	admin := createUser(t, svc, "c1", "Admin", "admin01", "admin@test.cd", user.RoleAdmin)
	owner := createUser(t, svc, "c1", "Owner", "owner01", "owner@test.cd", user.RoleAdminOwner)
	stud := createUser(t, svc, "c1", "Hero", "hero01", "hero@test.cd", user.RoleStudent)
	createUser(t, svc, "c2", "Other", "other01", "other@test.cd", user.RoleAdmin)

	inactive := false
	_, err := svc.Update(ctx, stud, user.UpdateUser{Name: stud.Name, Username: stud.Username, Email: stud.Email, IsActive: &inactive})
	require.NoError(t, err)

	ids := func(users []user.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}
	active := true

	tests := []struct {
		name      string
		filter    *user.QueryFilter
		orderings []core.DBOrdering
		want      []string
	}{
		{name: "all", orderings: core.ParseOrdering("name"), want: []string{admin.ID, stud.ID, owner.ID}},
		{name: "search", filter: &user.QueryFilter{Search: "OWNER@"}, want: []string{owner.ID}},
		{name: "role prefix", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, orderings: core.ParseOrdering("username"), want: []string{admin.ID, owner.ID}},
		{name: "active", filter: &user.QueryFilter{IsActive: &active}, orderings: core.ParseOrdering("-name"), want: []string{owner.ID, admin.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Query(ctx, "c1", tt.filter, tt.orderings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(users))
		})
	}
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	usr := createUser(t, svc, "c1", "Admin", "admin01", "admin@test.cd", user.RoleAdmin)

	got, err := svc.Get(ctx, "c1", usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("p@ssword"))

	_, err = svc.Get(ctx, "c2", usr.ID)
	assert.Equal(t, user.ErrNotFound, err)

	got, err = svc.GetByUsernameOrEmail(ctx, " ADMIN@test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
}

func TestService_CheckUniqueness(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	usr := createUser(t, svc, "c1", "Admin", "admin01", "admin@test.cd")

	err := svc.CheckUniqueness(ctx, "admin01", "")
	if verr, ok := err.(*core.ValidationError); assert.True(t, ok) {
		assert.Equal(t, "username", verr.Fields[0].Field)
	}

	err = svc.CheckUniqueness(ctx, "someone", "admin@test.cd")
	if verr, ok := err.(*core.ValidationError); assert.True(t, ok) {
		assert.Equal(t, "email", verr.Fields[0].Field)
	}

	assert.NoError(t, svc.CheckUniqueness(ctx, "admin01", "admin@test.cd", usr))
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, mb := setup(t)
	usr := createUser(t, svc, "c1", "Admin", "admin01", "admin@test.cd")

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@test.cd"))
	require.NoError(t, svc.RequestPasswordReset(ctx, "Admin@Test.cd"))
	require.Len(t, mb.sent, 1)

	msg := mb.sent[0]
	assert.Equal(t, "password_reset", msg.TemplateName)
	data := msg.TemplateData.(map[string]interface{})
	assert.Equal(t, user.EncodeUID(usr), data["UID"])

	err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"].(string), Token: "bad-token", Password: "n3w-p@ss"})
	assert.Equal(t, user.ErrInvalidReset, err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: "!!", Token: data["Token"].(string), Password: "n3w-p@ss"})
	assert.Equal(t, user.ErrInvalidReset, err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"].(string), Token: data["Token"].(string), Password: "n3w-p@ss"})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("n3w-p@ss"))

	t.Run("inactive users get no link", func(t *testing.T) {
		inactive := false
		_, err := svc.Update(ctx, got, user.UpdateUser{Name: got.Name, Username: got.Username, Email: got.Email, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "admin@test.cd"))
	})
}
