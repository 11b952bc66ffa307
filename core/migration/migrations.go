package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/fee"
)

// All lists the shipped migrations in the order they are applied.
var All = []Migration{
	{
		ID:          "0001_fee_status_backfill",
		Description: "set the status of fees without one from their paid amount",
		Apply:       feeStatusBackfill,
	},
	{
		ID:          "0002_fee_period_format",
		Description: "rewrite MM-YYYY and YYYY/MM fee periods as YYYY-MM",
		Apply:       feePeriodFormat,
	},
	{
		ID:          "0003_student_batch_trim",
		Description: "trim whitespace around student and enrollment batches",
		Apply:       studentBatchTrim,
	},
}

var (
	monthFirstPeriod = regexp.MustCompile(`^(\d{1,2})-(\d{4})$`)
	slashPeriod      = regexp.MustCompile(`^(\d{4})/(\d{1,2})$`)
)

type document map[string]interface{}

func (d document) id() string {
	id, _ := d["id"].(string)
	return id
}

func (d document) str(field string) string {
	s, _ := d[field].(string)
	return s
}

func (d document) num(field string) float64 {
	switch v := d[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// updateEach loads every document of coll and writes the fields returned by change, in one batch.
func updateEach(ctx context.Context, store core.DocStore, coll string, change func(document) map[string]interface{}) (int, error) {
	var docs []document
	if err := store.Find(ctx, coll, nil, &docs); err != nil {
		return 0, err
	}

	var ops []core.WriteOp
	for _, doc := range docs {
		if fields := change(doc); len(fields) > 0 {
			ops = append(ops, core.WriteOp{Kind: core.OpUpdate, Collection: coll, ID: doc.id(), Fields: fields})
		}
	}
	if len(ops) == 0 {
		return 0, nil
	}
	if err := store.WriteBatch(ctx, ops); err != nil {
		return 0, err
	}
	return len(ops), nil
}

func feeStatusBackfill(ctx context.Context, store core.DocStore) (int, error) {
	return updateEach(ctx, store, core.CollStudentFees, func(doc document) map[string]interface{} {
		if doc.str("status") != "" {
			return nil
		}
		return map[string]interface{}{"status": fee.StatusFromPaid(doc.num("amount"), doc.num("paid_amount"))}
	})
}

// NormalizePeriod rewrites legacy MM-YYYY and YYYY/MM periods as YYYY-MM.
// Other values are returned unchanged.
func NormalizePeriod(period string) string {
	period = strings.TrimSpace(period)
	var year, month string
	if m := monthFirstPeriod.FindStringSubmatch(period); m != nil {
		month, year = m[1], m[2]
	} else if m := slashPeriod.FindStringSubmatch(period); m != nil {
		year, month = m[1], m[2]
	} else {
		return period
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return fmt.Sprintf("%s-%s", year, month)
}

func feePeriodFormat(ctx context.Context, store core.DocStore) (int, error) {
	return updateEach(ctx, store, core.CollStudentFees, func(doc document) map[string]interface{} {
		period := doc.str("period")
		if normalized := NormalizePeriod(period); normalized != period {
			return map[string]interface{}{"period": normalized}
		}
		return nil
	})
}

func studentBatchTrim(ctx context.Context, store core.DocStore) (int, error) {
	trim := func(doc document) map[string]interface{} {
		batch := doc.str("batch")
		if trimmed := strings.TrimSpace(batch); trimmed != batch {
			return map[string]interface{}{"batch": trimmed}
		}
		return nil
	}

	total := 0
	for _, coll := range []string{core.CollStudents, core.CollEnrollments} {
		n, err := updateEach(ctx, store, coll, trim)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
