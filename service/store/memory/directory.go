package memory

import (
	"context"
	"sync"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	astore "github.com/viant/approval/service/store"
)

// Directory is an in-memory read-only document/user lookup, seeded by the
// host application (or tests) through the Add helpers.
type Directory struct {
	mu        sync.RWMutex
	documents map[string]*model.Document
	users     map[string]*model.User
	byEmail   map[string]*model.User
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		documents: make(map[string]*model.Document),
		users:     make(map[string]*model.User),
		byEmail:   make(map[string]*model.User),
	}
}

// AddDocument registers a document.
func (d *Directory) AddDocument(doc *model.Document) {
	if doc == nil || doc.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *doc
	d.documents[doc.ID] = &copied
}

// AddUser registers a user.
func (d *Directory) AddUser(user *model.User) {
	if user == nil || user.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *user
	d.users[user.ID] = &copied
	if user.Email != "" {
		d.byEmail[user.Email] = &copied
	}
}

func (d *Directory) Document(_ context.Context, id string) (*model.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.documents[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (d *Directory) User(_ context.Context, id string) (*model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (d *Directory) UserByEmail(_ context.Context, email string) (*model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.byEmail[email]
	if !ok {
		return nil, dao.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

var _ astore.Directory = (*Directory)(nil)
