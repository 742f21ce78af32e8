// Package invoicing assigns daily invoice numbers of the form YYYYMMDD-NNNN.
package invoicing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/kardex-pos/pkg/db"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
)

const (
	DefaultMaxAttempts = 100
	MaxSequence        = 9999
	dateLayout         = "20060102"
	advisoryLockSQL    = "SELECT pg_advisory_xact_lock(hashtext(?))"
)

var numberPattern = regexp.MustCompile(`^\d{8}-\d{4}$`)

// Valid reports whether number has the YYYYMMDD-NNNN shape with a real date.
func Valid(number string) bool {
	if !numberPattern.MatchString(number) {
		return false
	}
	_, err := time.Parse(dateLayout, number[:8])
	return err == nil
}

// Numberer hands out invoice numbers inside an open unit of work.
type Numberer interface {
	Next(ctx context.Context, u *db.Unit, date time.Time) (string, error)
}

type ServiceParams struct {
	Lookup      Lookup
	MaxAttempts int
	Location    *time.Location
	Logger      *logger.Logger
	Metrics     *metrics.SalesMetrics
}

type service struct {
	lookup      Lookup
	maxAttempts int
	loc         *time.Location
	logg        *logger.Logger
	metrics     *metrics.SalesMetrics
}

func NewService(params ServiceParams) (Numberer, error) {
	if params.Lookup == nil {
		return nil, fmt.Errorf("invoice lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		lookup:      params.Lookup,
		maxAttempts: maxAttempts,
		loc:         loc,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// Prefix returns the YYYYMMDD part for a date in the given location.
func Prefix(date time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return date.In(loc).Format(dateLayout)
}

// Format renders a full invoice number.
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// Next takes the highest number issued today, adds one and re-checks the
// candidate, giving up after maxAttempts with NUMBERING_EXHAUSTED.
func (s *service) Next(ctx context.Context, u *db.Unit, date time.Time) (string, error) {
	tx, err := u.Require("invoice numbering")
	if err != nil {
		return "", err
	}
	prefix := Prefix(date, s.loc)

	// Serializes numbering for the day until the unit ends.
	if db.IsPostgres(tx) {
		if err := tx.WithContext(ctx).Exec(advisoryLockSQL, "invoice:"+prefix).Error; err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock invoice sequence")
		}
	}

	latest, err := s.lookup.LatestWithPrefix(ctx, tx, prefix+"-")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read latest invoice number")
	}
	seq, err := parseSequence(latest)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse latest invoice number")
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		seq++
		if seq > MaxSequence {
			return "", s.exhausted(ctx, prefix, attempt-1, "invoice sequence full for the day")
		}
		candidate := Format(prefix, seq)
		exists, err := s.lookup.Exists(ctx, tx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check invoice number")
		}
		if !exists {
			s.metrics.ObserveNumberingAttempts(attempt)
			return candidate, nil
		}
	}

	return "", s.exhausted(ctx, prefix, s.maxAttempts, "could not allocate an invoice number")
}

func (s *service) exhausted(ctx context.Context, prefix string, attempts int, message string) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"prefix":   prefix,
		"attempts": attempts,
	})
	s.logg.Warn(logCtx, "invoice numbering exhausted")
	return pkgerrors.New(pkgerrors.CodeNumberingExhausted, message).
		WithDetails(map[string]any{"prefix": prefix, "attempts": attempts})
}

func parseSequence(number string) (int, error) {
	if number == "" {
		return 0, nil
	}
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, fmt.Errorf("malformed invoice number %q", number)
	}
	seq, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed invoice number %q: %w", number, err)
	}
	return seq, nil
}
