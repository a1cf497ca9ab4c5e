package repository

import (
	"context"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
)

// UserRepository addresses user records by document path (users/<uid>)
type UserRepository struct {
	db handle
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{db: store}
}

func (r *UserRepository) WithTx(tx docstore.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Get(ctx context.Context, path string) (*domain.User, error) {
	return getDocument[domain.User](ctx, r.db, path)
}

func (r *UserRepository) Create(ctx context.Context, path string, user *domain.User) error {
	return r.db.Create(ctx, path, user)
}

func (r *UserRepository) Update(ctx context.Context, path string, user *domain.User) error {
	return r.db.Set(ctx, path, user, false)
}

// UpdateFields merges fields into the record
func (r *UserRepository) UpdateFields(ctx context.Context, path string, fields map[string]any) error {
	return r.db.Set(ctx, path, fields, true)
}

func (r *UserRepository) Delete(ctx context.Context, path string) error {
	return r.db.Delete(ctx, path)
}

func (r *UserRepository) ListQuery(collection string, opts ListOptions) docstore.Query {
	return opts.apply(docstore.Query{Collection: collection, OrderBy: "email"})
}

func (r *UserRepository) List(ctx context.Context, collection string, opts ListOptions) ([]domain.User, error) {
	return queryDocuments[domain.User](ctx, r.db, r.ListQuery(collection, opts))
}

// CountAdmins counts user records whose stored role is Admin
func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	docs, err := r.db.Query(ctx, docstore.Query{Collection: access.UsersCollection}.Where(FieldRole, string(domain.RoleAdmin)))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
