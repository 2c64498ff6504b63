package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

type ToFirestoreFunc[T any] func(*T) map[string]interface{}
type FromFirestoreFunc[T any] func(map[string]interface{}) *T

// Collection is a typed view over one Firestore collection. Converters keep
// the stored field names snake_case and independent of the Go structs.
type Collection[T any] struct {
	Ref           *firestore.CollectionRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.Doc(id),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

func (c *Collection[T]) NewDoc() *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.NewDoc(),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

type DocumentRef[T any] struct {
	Ref           *firestore.DocumentRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (d *DocumentRef[T]) ID() string {
	return d.Ref.ID
}

func (d *DocumentRef[T]) Get(ctx context.Context) (*T, error) {
	snap, err := d.Ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return d.FromFirestore(snap.Data()), nil
}

// Set overwrites the whole document. A record write replaces the previous
// version of that record; partial merges go through Update.
func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	_, err := d.Ref.Set(ctx, d.ToFirestore(data))
	return err
}

// Update merges a partial map into the document. Keys must match the stored
// snake_case field names; no converter runs here.
func (d *DocumentRef[T]) Update(ctx context.Context, updates map[string]interface{}) error {
	_, err := d.Ref.Set(ctx, updates, firestore.MergeAll)
	return err
}

func (d *DocumentRef[T]) Delete(ctx context.Context) error {
	_, err := d.Ref.Delete(ctx)
	return err
}
