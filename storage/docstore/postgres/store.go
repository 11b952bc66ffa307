// Package pgstore is a core.DocStore keeping documents as JSONB rows of a single
// `documents` table, keyed by (collection, id).
package pgstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var fieldRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Store struct {
	db *sqlx.DB
}

var _ core.DocStore = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func encode(doc interface{}) ([]byte, error) {
	data, err := json.Marshal(doc)
	return data, errors.Wrap(err, "encoding document")
}

func (s *Store) Insert(ctx context.Context, coll, id string, doc interface{}) error {
	return insert(ctx, s.db, coll, id, doc)
}

func insert(ctx context.Context, db execer, coll, id string, doc interface{}) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		coll, id, types.JSONText(data),
	)
	if err != nil {
		return errors.Wrapf(err, "inserting into %s", coll)
	}
	return checkAffected(res, core.ErrDuplicateDocument)
}

func (s *Store) Get(ctx context.Context, coll, id string, out interface{}) error {
	var data types.JSONText
	err := s.db.GetContext(ctx, &data, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, coll, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.ErrNoDocument
		}
		return errors.Wrapf(err, "finding %s/%s", coll, id)
	}
	return errors.Wrap(data.Unmarshal(out), "decoding document")
}

// where builds the WHERE clause of filter: scalar values go into a single JSONB
// containment test, []string values into `data->>'field' = ANY(...)`.
func where(coll string, filter core.Filter) (string, []interface{}, error) {
	clauses := []string{"collection = $1"}
	args := []interface{}{coll}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	contains := make(map[string]interface{}, len(filter))
	for _, field := range fields {
		if !fieldRegex.MatchString(field) {
			return "", nil, errors.Errorf("invalid filter field %q", field)
		}
		val := filter[field]
		if vals, ok := val.([]string); ok {
			args = append(args, pq.Array(vals))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' = ANY($%d)", field, len(args)))
			continue
		}
		contains[field] = val
	}
	if len(contains) > 0 {
		data, err := json.Marshal(contains)
		if err != nil {
			return "", nil, errors.Wrap(err, "encoding filter")
		}
		args = append(args, types.JSONText(data))
		clauses = append(clauses, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (s *Store) Find(ctx context.Context, coll string, filter core.Filter, out interface{}) error {
	cond, args, err := where(coll, filter)
	if err != nil {
		return err
	}

	var rows []types.JSONText
	if err = s.db.SelectContext(ctx, &rows, `SELECT data FROM documents WHERE `+cond+` ORDER BY seq`, args...); err != nil {
		return errors.Wrapf(err, "querying %s", coll)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(row)
	}
	buf.WriteByte(']')
	return errors.Wrap(json.Unmarshal(buf.Bytes(), out), "decoding documents")
}

func (s *Store) Count(ctx context.Context, coll string, filter core.Filter) (int64, error) {
	cond, args, err := where(coll, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.GetContext(ctx, &n, `SELECT count(*) FROM documents WHERE `+cond, args...)
	return n, errors.Wrapf(err, "counting %s", coll)
}

func (s *Store) Replace(ctx context.Context, coll, id string, doc interface{}) error {
	return replace(ctx, s.db, coll, id, doc)
}

func replace(ctx context.Context, db execer, coll, id string, doc interface{}) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE documents SET data = $3, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		coll, id, types.JSONText(data),
	)
	if err != nil {
		return errors.Wrapf(err, "replacing %s/%s", coll, id)
	}
	return checkAffected(res, core.ErrNoDocument)
}

func (s *Store) Update(ctx context.Context, coll, id string, fields map[string]interface{}) error {
	return update(ctx, s.db, coll, id, fields)
}

func update(ctx context.Context, db execer, coll, id string, fields map[string]interface{}) error {
	data, err := encode(fields)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		coll, id, types.JSONText(data),
	)
	if err != nil {
		return errors.Wrapf(err, "updating %s/%s", coll, id)
	}
	return checkAffected(res, core.ErrNoDocument)
}

func (s *Store) Delete(ctx context.Context, coll string, ids ...string) (int64, error) {
	return remove(ctx, s.db, coll, ids...)
}

func remove(ctx context.Context, db execer, coll string, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`, coll, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", coll)
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "getting rows affected")
}

// WriteBatch applies ops in a single transaction.
func (s *Store) WriteBatch(ctx context.Context, ops []core.WriteOp) (err error) {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, op := range ops {
		switch op.Kind {
		case core.OpInsert:
			err = insert(ctx, tx, op.Collection, op.ID, op.Doc)
		case core.OpReplace:
			err = replace(ctx, tx, op.Collection, op.ID, op.Doc)
		case core.OpUpdate:
			err = update(ctx, tx, op.Collection, op.ID, op.Fields)
		case core.OpDelete:
			_, err = remove(ctx, tx, op.Collection, op.ID)
		default:
			err = errors.Errorf("unknown write op %d", op.Kind)
		}
		if err != nil {
			return errors.Wrapf(err, "batch op #%d (%s %s/%s)", i, op.Kind, op.Collection, op.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.PingContext(ctx), "pinging postgres")
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func checkAffected(res sql.Result, errNone error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting rows affected")
	}
	if n == 0 {
		return errNone
	}
	return nil
}
