package docrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// userDoc is the stored shape of a user.User: unlike the API shape, it keeps the password hash.
type userDoc struct {
	ID           string    `json:"id" bson:"id"`
	CenterID     string    `json:"center_id" bson:"center_id"`
	Name         string    `json:"name" bson:"name"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	Roles        []string  `json:"roles" bson:"roles"`
	PasswordHash []byte    `json:"password_hash" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin    time.Time `json:"last_login" bson:"last_login"`
}

func toUserDoc(usr user.User) userDoc {
	return userDoc{
		ID:           usr.ID,
		CenterID:     usr.CenterID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
}

func (d userDoc) user() user.User {
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           d.ID,
		CenterID:     d.CenterID,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		IsActive:     d.IsActive,
		Roles:        roles,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}
}

type userRepository struct {
	store core.DocStore
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(store core.DocStore) *userRepository {
	return &userRepository{store: store}
}

func (repo userRepository) findOne(ctx context.Context, where core.Filter) (user.User, error) {
	var docs []userDoc
	if err := repo.store.Find(ctx, core.CollUsers, where, &docs); err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	if len(docs) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return docs[0].user(), nil
}

// CheckUsernameUniqueness checks username & email against the users of every center.
func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	check := func(field, val string, errExists error) error {
		if val == "" {
			return nil
		}
		var docs []userDoc
		if err := repo.store.Find(ctx, core.CollUsers, core.Filter{field: val}, &docs); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		for _, d := range docs {
			if !excluded[d.ID] {
				return errExists
			}
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.store.Insert(ctx, core.CollUsers, usr.ID, toUserDoc(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, centerID string) ([]user.User, error) {
	var docs []userDoc
	if err := repo.store.Find(ctx, core.CollUsers, core.Filter{"center_id": centerID}, &docs); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var doc userDoc
	if err := repo.store.Get(ctx, core.CollUsers, id, &doc); err != nil {
		return user.User{}, trapNoDocErr(err, user.ErrNotFound, "getting user by ID")
	}
	return doc.user(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.findOne(ctx, core.Filter{"email": email})
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	usr, err := repo.findOne(ctx, core.Filter{"username": username})
	if err != user.ErrNotFound {
		return usr, err
	}
	return repo.findOne(ctx, core.Filter{"email": username})
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.store.Replace(ctx, core.CollUsers, usr.ID, toUserDoc(usr)); err != nil {
		return user.User{}, trapNoDocErr(err, user.ErrNotFound, "updating user")
	}
	return usr, nil
}

func (repo userRepository) SetUserLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.store.Update(ctx, core.CollUsers, usr.ID, map[string]interface{}{"last_login": usr.LastLogin.UTC()})
	if err != nil {
		return user.User{}, trapNoDocErr(err, user.ErrNotFound, "setting user last login")
	}
	return usr, nil
}

// DeleteUsersByID deletes the users of the center with the given ids; other ids are ignored.
func (repo userRepository) DeleteUsersByID(ctx context.Context, centerID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	scoped, err := scopedIDs(ctx, repo.store, core.CollUsers, centerID, core.Filter{"id": ids})
	if err != nil {
		return errors.Wrap(err, "finding users")
	}
	if len(scoped) == 0 {
		return nil
	}
	_, err = repo.store.Delete(ctx, core.CollUsers, scoped...)
	return errors.Wrap(err, "deleting users")
}
