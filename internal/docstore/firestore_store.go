package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// itemsCollection holds the documents of a logical collection whose path has an even
// number of segments (public/customers), which Firestore would read as a document path.
const itemsCollection = "items"

// FirestoreStore is a Store backed by Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore connects to Firestore for projectID
func NewFirestoreStore(ctx context.Context, projectID string, logger *zap.Logger, opts ...option.ClientOption) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewFirestoreStoreWithClient(client, logger), nil
}

// NewFirestoreStoreWithClient wraps an existing client
func NewFirestoreStoreWithClient(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

// FirestoreCollectionPath maps a logical collection path onto a Firestore collection path
func FirestoreCollectionPath(collection string) string {
	collection = strings.Trim(collection, "/")
	if strings.Count(collection, "/")%2 == 1 {
		return collection + "/" + itemsCollection
	}
	return collection
}

// FirestoreDocPath maps a logical document path onto a Firestore document path
func FirestoreDocPath(path string) (string, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	return FirestoreCollectionPath(collection) + "/" + id, nil
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, string, error) {
	fsPath, err := FirestoreDocPath(path)
	if err != nil {
		return nil, "", err
	}
	ref := s.client.Doc(fsPath)
	if ref == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	collection, _, _ := SplitPath(path)
	return ref, collection, nil
}

func (s *FirestoreStore) query(q Query) (firestore.Query, error) {
	if err := validCollection(q.Collection); err != nil {
		return firestore.Query{}, err
	}
	coll := s.client.Collection(FirestoreCollectionPath(q.Collection))
	if coll == nil {
		return firestore.Query{}, fmt.Errorf("%w: %q", ErrInvalidPath, q.Collection)
	}
	fq := coll.Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (*Document, error) {
	ref, collection, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return fromSnapshot(collection, snap), nil
}

func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	fq, err := s.query(q)
	if err != nil {
		return nil, err
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return fromSnapshots(q.Collection, snaps), nil
}

func (s *FirestoreStore) Create(ctx context.Context, path string, data any) error {
	ref, _, err := s.doc(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, m); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Set(ctx context.Context, path string, data any, merge bool) error {
	ref, _, err := s.doc(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	if merge {
		_, err = ref.Set(ctx, m, firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, m)
	}
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	ref, _, err := s.doc(path)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return mapFirestoreError(err)
}

// RunTransaction runs fn in a Firestore transaction. Firestore retries contention aborts
// itself; an error returned by fn is returned unchanged.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var fnErr error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		fnErr = fn(ctx, &firestoreTx{store: s, tx: ftx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return mapFirestoreError(err)
}

// Subscribe uses the native snapshot listener
func (s *FirestoreStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	fq, err := s.query(q)
	if err != nil {
		return nil, err
	}
	return startSubscription(ctx, func(ctx context.Context, emit func(Snapshot) bool) {
		iter := fq.Snapshots(ctx)
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			if err != nil {
				s.logger.Warn("firestore listener failed",
					zap.String("collection", q.Collection),
					zap.Error(err))
				emit(Snapshot{Err: mapFirestoreError(err), ReadAt: time.Now().UTC()})
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				if !emit(Snapshot{Err: mapFirestoreError(err), ReadAt: time.Now().UTC()}) {
					return
				}
				continue
			}
			if !emit(Snapshot{Docs: fromSnapshots(q.Collection, snaps), ReadAt: qs.ReadTime}) {
				return
			}
		}
	}), nil
}

// Ping reads at most one metadata document
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection("metadata").Limit(1).Documents(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(_ context.Context, path string) (*Document, error) {
	ref, collection, err := t.store.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := t.tx.Get(ref)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return fromSnapshot(collection, snap), nil
}

func (t *firestoreTx) Query(_ context.Context, q Query) ([]*Document, error) {
	fq, err := t.store.query(q)
	if err != nil {
		return nil, err
	}
	snaps, err := t.tx.Documents(fq).GetAll()
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return fromSnapshots(q.Collection, snaps), nil
}

func (t *firestoreTx) Create(_ context.Context, path string, data any) error {
	ref, _, err := t.store.doc(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	return mapFirestoreError(t.tx.Create(ref, m))
}

func (t *firestoreTx) Set(_ context.Context, path string, data any, merge bool) error {
	ref, _, err := t.store.doc(path)
	if err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	if merge {
		return mapFirestoreError(t.tx.Set(ref, m, firestore.MergeAll))
	}
	return mapFirestoreError(t.tx.Set(ref, m))
}

func (t *firestoreTx) Delete(_ context.Context, path string) error {
	ref, _, err := t.store.doc(path)
	if err != nil {
		return err
	}
	return mapFirestoreError(t.tx.Delete(ref))
}

func fromSnapshot(collection string, snap *firestore.DocumentSnapshot) *Document {
	data := snap.Data()
	if data == nil {
		data = map[string]any{}
	}
	return &Document{
		ID:         snap.Ref.ID,
		Path:       collection + "/" + snap.Ref.ID,
		Data:       data,
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func fromSnapshots(collection string, snaps []*firestore.DocumentSnapshot) []*Document {
	docs := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromSnapshot(collection, snap))
	}
	return docs
}

func mapFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
