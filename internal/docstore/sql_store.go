package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the SQL representation of a document
type documentRow struct {
	Collection string            `gorm:"primaryKey;size:512"`
	ID         string            `gorm:"primaryKey;size:255"`
	Data       datatypes.JSONMap `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

func (r *documentRow) toDocument() *Document {
	data := map[string]any{}
	for k, v := range r.Data {
		data[k] = normalizeNumbers(v)
	}
	return &Document{
		ID:         r.ID,
		Path:       r.Collection + "/" + r.ID,
		Data:       data,
		CreateTime: r.CreatedAt,
		UpdateTime: r.UpdatedAt,
	}
}

// normalizeNumbers replaces the json.Number values JSONMap decodes with float64, the
// same representation a plain JSON decode yields
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case interface{ Float64() (float64, error) }:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return v
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	}
	return v
}

// fieldPattern limits which field names are pushed into SQL JSON expressions
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps documents in a single "documents" table through gorm. It works with
// Postgres and SQLite. Change notifications are published on the broker after commit.
type SQLStore struct {
	db     *gorm.DB
	broker Broker
	logger *zap.Logger
}

// NewSQLStore creates a store over db. A nil broker defaults to a LocalBroker.
func NewSQLStore(db *gorm.DB, broker Broker, logger *zap.Logger) *SQLStore {
	if broker == nil {
		broker = NewLocalBroker()
	}
	return &SQLStore{db: db, broker: broker, logger: logger}
}

// AutoMigrate creates the documents table (SQLite and development only; Postgres uses goose)
func (s *SQLStore) AutoMigrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *SQLStore) Get(ctx context.Context, path string) (*Document, error) {
	return (&sqlTx{db: s.db}).Get(ctx, path)
}

func (s *SQLStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	return (&sqlTx{db: s.db}).Query(ctx, q)
}

func (s *SQLStore) Create(ctx context.Context, path string, data any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(ctx, path, data)
	})
}

func (s *SQLStore) Set(ctx context.Context, path string, data any, merge bool) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Set(ctx, path, data, merge)
	})
}

func (s *SQLStore) Delete(ctx context.Context, path string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Delete(ctx, path)
	})
}

// RunTransaction runs fn in a database transaction. Reads inside fn lock the rows they find.
func (s *SQLStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &sqlTx{lock: true, changed: make(map[string]struct{})}
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		tx.db = db
		return fn(ctx, tx)
	})
	if err != nil {
		return err
	}
	for collection := range tx.changed {
		if err := s.broker.Publish(ctx, collection); err != nil {
			s.logger.Warn("failed to publish change notification",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}
	return nil
}

// Subscribe emits the query result immediately and after every change notification
func (s *SQLStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := validCollection(q.Collection); err != nil {
		return nil, err
	}
	events, release, err := s.broker.Listen(ctx, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen for changes: %v", ErrUnavailable, err)
	}

	return startSubscription(ctx, func(ctx context.Context, emit func(Snapshot) bool) {
		defer release()
		for {
			docs, err := s.Query(ctx, q)
			if ctx.Err() != nil {
				return
			}
			if !emit(Snapshot{Docs: docs, Err: err, ReadAt: time.Now().UTC()}) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
			}
		}
	}), nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqlTx implements Tx over a gorm handle. Outside a transaction lock is false and changed is nil.
type sqlTx struct {
	db      *gorm.DB
	lock    bool
	changed map[string]struct{}
}

func (t *sqlTx) Get(ctx context.Context, path string) (*Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	q := t.db.WithContext(ctx)
	if t.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row documentRow
	if err := q.Where("collection = ? AND id = ?", collection, id).Take(&row).Error; err != nil {
		return nil, mapGormError(err)
	}
	return row.toDocument(), nil
}

func (t *sqlTx) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := validCollection(q.Collection); err != nil {
		return nil, err
	}
	db := t.db.WithContext(ctx).Where("collection = ?", q.Collection)

	var rest []Filter
	for _, f := range q.Filters {
		if v, ok := f.Value.(string); ok && fieldPattern.MatchString(f.Field) {
			db = db.Where(datatypes.JSONQuery("data").Equals(v, f.Field))
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) == 0 && q.OrderBy == "" && q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var rows []documentRow
	if err := db.Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, mapGormError(err)
	}

	docs := make([]*Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].toDocument())
	}
	return applyQuery(docs, rest, q), nil
}

func (t *sqlTx) Create(ctx context.Context, path string, data any) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}

	var count int64
	if err := t.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Count(&count).Error; err != nil {
		return mapGormError(err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	row := documentRow{Collection: collection, ID: id, Data: datatypes.JSONMap(m)}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapGormError(err)
	}
	t.markChanged(collection)
	return nil
}

func (t *sqlTx) Set(ctx context.Context, path string, data any, merge bool) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}

	var existing documentRow
	err = t.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := documentRow{Collection: collection, ID: id, Data: datatypes.JSONMap(m)}
		if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
			return mapGormError(err)
		}
	case err != nil:
		return mapGormError(err)
	default:
		if merge {
			m = mergeMaps(existing.Data, m)
		}
		if err := t.db.WithContext(ctx).Model(&documentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{
				"data":       datatypes.JSONMap(m),
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return mapGormError(err)
		}
	}
	t.markChanged(collection)
	return nil
}

func (t *sqlTx) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error; err != nil {
		return mapGormError(err)
	}
	t.markChanged(collection)
	return nil
}

func (t *sqlTx) markChanged(collection string) {
	if t.changed != nil {
		t.changed[collection] = struct{}{}
	}
}

func mapGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
