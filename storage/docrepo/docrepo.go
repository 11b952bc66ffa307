// Package docrepo implements the domain repositories over a core.DocStore.
package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// trapNoDocErr maps core.ErrNoDocument to the domain's not found error.
func trapNoDocErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == core.ErrNoDocument {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// tenant returns where scoped to the center.
func tenant(centerID string, where core.Filter) core.Filter {
	scoped := make(core.Filter, len(where)+1)
	for k, v := range where {
		scoped[k] = v
	}
	scoped["center_id"] = centerID
	return scoped
}

// deleteOps returns the delete ops of the given documents of coll.
func deleteOps(coll string, ids ...string) []core.WriteOp {
	ops := make([]core.WriteOp, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, core.WriteOp{Kind: core.OpDelete, Collection: coll, ID: id})
	}
	return ops
}

// scopedIDs returns the ids of the documents of coll matching the center scoped filter.
func scopedIDs(ctx context.Context, store core.DocStore, coll, centerID string, where core.Filter) ([]string, error) {
	var docs []struct {
		ID string `json:"id" bson:"id"`
	}
	if err := store.Find(ctx, coll, tenant(centerID, where), &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// insertOps returns an insert op per document; id returns the id of the i-th document.
func insertOps(coll string, n int, doc func(i int) (string, interface{})) []core.WriteOp {
	ops := make([]core.WriteOp, 0, n)
	for i := 0; i < n; i++ {
		id, d := doc(i)
		ops = append(ops, core.WriteOp{Kind: core.OpInsert, Collection: coll, ID: id, Doc: d})
	}
	return ops
}

// writeChunks applies ops with batch writes of at most size ops.
func writeChunks(ctx context.Context, store core.DocStore, ops []core.WriteOp, size int) error {
	for _, chunk := range core.ChunkOps(ops, size) {
		if err := store.WriteBatch(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// getScoped gets the document id of coll, reporting notFound when it belongs to another center.
func getScoped[T any](ctx context.Context, store core.DocStore, coll, centerID, id string, notFound error, centerOf func(T) string) (T, error) {
	var doc, zero T
	if err := store.Get(ctx, coll, id, &doc); err != nil {
		return zero, trapNoDocErr(err, notFound, "getting document")
	}
	if centerOf(doc) != centerID {
		return zero, notFound
	}
	return doc, nil
}

// findScoped returns the documents of coll matching the center scoped filter; never nil.
func findScoped[T any](ctx context.Context, store core.DocStore, coll, centerID string, where core.Filter) ([]T, error) {
	var docs []T
	if err := store.Find(ctx, coll, tenant(centerID, where), &docs); err != nil {
		return nil, errors.Wrapf(err, "querying %s", coll)
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// deleteScoped deletes the document id of coll if it belongs to the center.
func deleteScoped(ctx context.Context, store core.DocStore, coll, centerID, id string, notFound error) error {
	ids, err := scopedIDs(ctx, store, coll, centerID, core.Filter{"id": id})
	if err != nil {
		return errors.Wrapf(err, "finding %s document", coll)
	}
	if len(ids) == 0 {
		return notFound
	}
	n, err := store.Delete(ctx, coll, ids...)
	if err != nil {
		return errors.Wrapf(err, "deleting %s document", coll)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
