package docrepo

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/faculty"
	"github.com/trezcool/darasa/core/student"
)

type announcementRepository struct {
	store core.DocStore
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(store core.DocStore) *announcementRepository {
	return &announcementRepository{store: store}
}

func (repo announcementRepository) Create(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	if err := repo.store.Insert(ctx, core.CollAnnouncements, a.ID, a); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo announcementRepository) Get(ctx context.Context, centerID, id string) (announcement.Announcement, error) {
	return getScoped(ctx, repo.store, core.CollAnnouncements, centerID, id, announcement.ErrNotFound, func(a announcement.Announcement) string {
		return a.CenterID
	})
}

func (repo announcementRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]announcement.Announcement, error) {
	return findScoped[announcement.Announcement](ctx, repo.store, core.CollAnnouncements, centerID, where)
}

func (repo announcementRepository) Update(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	if err := repo.store.Replace(ctx, core.CollAnnouncements, a.ID, a); err != nil {
		return announcement.Announcement{}, trapNoDocErr(err, announcement.ErrNotFound, "updating announcement")
	}
	return a, nil
}

func (repo announcementRepository) Delete(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollAnnouncements, centerID, id, announcement.ErrNotFound)
}

// Recipients returns the addresses of the active students and faculty the announcement targets.
func (repo announcementRepository) Recipients(ctx context.Context, a announcement.Announcement) ([]mail.Address, error) {
	var (
		addrs []mail.Address
		seen  = make(map[string]bool)
	)
	add := func(name, email string) {
		key := strings.ToLower(email)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		addrs = append(addrs, mail.Address{Name: name, Address: email})
	}

	if a.Audience != announcement.AudienceFaculty {
		where := core.Filter{"is_active": true}
		if a.Audience == announcement.AudienceBatch {
			where["batch"] = a.Batch
		}
		studs, err := findScoped[student.Student](ctx, repo.store, core.CollStudents, a.CenterID, where)
		if err != nil {
			return nil, errors.Wrap(err, "finding student recipients")
		}
		for _, s := range studs {
			add(s.Name, s.Email)
		}
	}

	if a.Audience == announcement.AudienceAll || a.Audience == announcement.AudienceFaculty {
		members, err := findScoped[faculty.Faculty](ctx, repo.store, core.CollFaculty, a.CenterID, core.Filter{"is_active": true})
		if err != nil {
			return nil, errors.Wrap(err, "finding faculty recipients")
		}
		for _, f := range members {
			add(f.Name, f.Email)
		}
	}
	return addrs, nil
}
