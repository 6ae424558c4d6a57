// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
	"github.com/NandaKumar8776/scene-plus-engine/internal/validation"
)

// RecordError reports why one raw record was rejected. Index refers to the
// record's position in the input batch.
type RecordError struct {
	Index   int      `json:"index"`
	Reasons []string `json:"reasons"`
}

// Result carries the outcome of a normalization call. Transactions holds the
// records that survived, Errors the per-record rejections.
type Result struct {
	Source       SourceKind           `json:"source"`
	Transactions []models.Transaction `json:"transactions"`
	Errors       []RecordError        `json:"errors,omitempty"`
}

// Normalizer converts one source's raw records into canonical Transactions.
type Normalizer struct {
	cfg    SourceConfig
	logger zerolog.Logger
}

// NewNormalizer builds a normalizer for a source kind.
func NewNormalizer(kind SourceKind) (*Normalizer, error) {
	cfg, err := SourceConfigFor(kind)
	if err != nil {
		return nil, err
	}
	return &Normalizer{
		cfg:    cfg,
		logger: logging.With().Str("component", "normalizer").Str("source", string(kind)).Logger(),
	}, nil
}

// Normalize transforms a raw batch. Individual record failures are isolated
// into the result's error report; the call itself fails only when the batch
// is structurally unusable.
func (n *Normalizer) Normalize(records []map[string]any) (*Result, error) {
	if len(records) == 0 {
		return nil, models.NewTransformationError("%s: empty batch", n.cfg.Kind)
	}
	if missing := n.missingColumns(records); len(missing) > 0 {
		return nil, models.NewFeatureError("%s: batch missing required columns: %s",
			n.cfg.Kind, strings.Join(missing, ", "))
	}

	result := &Result{
		Source:       n.cfg.Kind,
		Transactions: make([]models.Transaction, 0, len(records)),
	}
	for i, raw := range records {
		tx, reasons := n.normalizeRecord(raw)
		if len(reasons) > 0 {
			result.Errors = append(result.Errors, RecordError{Index: i, Reasons: reasons})
			metrics.RecordsNormalized.WithLabelValues(string(n.cfg.Kind), "error").Inc()
			continue
		}
		result.Transactions = append(result.Transactions, tx)
		metrics.RecordsNormalized.WithLabelValues(string(n.cfg.Kind), "ok").Inc()
	}

	if len(result.Transactions) == 0 {
		return nil, models.NewTransformationError(
			"%s: no valid records after transformation (%d rejected)",
			n.cfg.Kind, len(result.Errors))
	}

	n.logger.Debug().
		Int("records", len(records)).
		Int("valid", len(result.Transactions)).
		Int("rejected", len(result.Errors)).
		Msg("batch normalized")
	return result, nil
}

// missingColumns reports required canonical columns absent from every record
// in the batch, i.e. a structural problem with the feed rather than a bad
// record.
func (n *Normalizer) missingColumns(records []map[string]any) []string {
	present := make(map[string]bool)
	for _, raw := range records {
		for key := range raw {
			if canonical, ok := n.cfg.Renames[key]; ok {
				present[canonical] = true
			} else {
				present[key] = true
			}
		}
	}
	var missing []string
	for _, col := range n.cfg.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func (n *Normalizer) normalizeRecord(raw map[string]any) (models.Transaction, []string) {
	rec := n.canonicalize(raw)
	var reasons []string

	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	for field, allowed := range n.cfg.Vocab {
		val, _ := coerceString(rec[field])
		if val == "" {
			continue // required-field handling reports the absence
		}
		ok := false
		for _, a := range allowed {
			if val == a {
				ok = true
				break
			}
		}
		if !ok {
			fail("%s: %q not in allowed set %v", field, val, allowed)
		}
	}

	var tx models.Transaction
	var err error

	if tx.TransactionID, err = coerceString(rec["transaction_id"]); err != nil {
		fail("transaction_id: %v", err)
	}
	if tx.CustomerID, err = coerceString(rec["customer_id"]); err != nil {
		fail("customer_id: %v", err)
	}
	if tx.Timestamp, err = coerceTime(rec["timestamp"]); err != nil {
		fail("timestamp: %v", err)
	}
	if tx.Banner, err = coerceString(rec["banner"]); err != nil {
		fail("banner: %v", err)
	}

	if _, ok := rec["total_amount"]; ok {
		if tx.TotalAmount, err = coerceFloat(rec["total_amount"]); err != nil {
			fail("total_amount: %v", err)
		}
	}
	if _, ok := rec["points_earned"]; ok {
		if tx.PointsEarned, err = coerceFloat(rec["points_earned"]); err != nil {
			fail("points_earned: %v", err)
		}
	}

	if n.cfg.SynthesizeItems {
		tx.Items = []models.Item{{SKU: n.cfg.ItemSKU, Quantity: 1, Price: tx.TotalAmount}}
	} else if tx.Items, err = parseItems(rec["items"]); err != nil {
		fail("%v", err)
	}

	if pm, ok := rec["payment_method"]; ok {
		if tx.PaymentMethod, err = coerceString(pm); err != nil {
			fail("payment_method: %v", err)
		}
	} else {
		tx.PaymentMethod = n.cfg.DefaultPayment
	}

	if len(reasons) > 0 {
		return models.Transaction{}, reasons
	}

	if verr := validation.ValidateStruct(&tx); verr != nil {
		for _, f := range verr.Fields() {
			reasons = append(reasons, f.Message)
		}
		return models.Transaction{}, reasons
	}
	return tx, nil
}

// canonicalize renames source-specific keys and case-folds categorical
// string fields. The input map is never mutated.
func (n *Normalizer) canonicalize(raw map[string]any) map[string]any {
	rec := make(map[string]any, len(raw))
	for key, val := range raw {
		if canonical, ok := n.cfg.Renames[key]; ok {
			key = canonical
		}
		rec[key] = val
	}
	for _, field := range n.cfg.Categoricals {
		if s, ok := rec[field].(string); ok {
			rec[field] = strings.ToLower(strings.TrimSpace(s))
		}
	}
	return rec
}

func coerceString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", fmt.Errorf("missing")
	case string:
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("empty")
		}
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("not a string (%T)", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch f := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing")
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	case json.Number:
		return f.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", f)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("not numeric (%T)", v)
	}
}

// timestampLayouts are accepted in order. RFC3339 covers API payloads, the
// space-separated layout covers warehouse exports.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing")
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
