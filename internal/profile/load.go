package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"csvingest/internal/datasource/file"
	"csvingest/internal/ingest"
	csvparser "csvingest/internal/parser/csv"
	"csvingest/internal/record"
	"csvingest/internal/schema"
	"csvingest/internal/sink"
	"csvingest/internal/transformer"
	"csvingest/internal/transformer/builtin"
)

// Header is the exact header line a profile file must start with.
const Header = "start,end,percentage,type"

const (
	sumTolerance = 1e-4
	heavyBucket  = 0.3
	profileJob   = "volume_profile"
)

// Schema is the row contract of a profile file.
func Schema() *schema.Schema {
	return schema.MustRegister([]schema.Column{
		{Name: "start", Type: schema.Date, Layout: ClockLayout, StrictLayout: true},
		{Name: "end", Type: schema.Date, Layout: ClockLayout, StrictLayout: true},
		{Name: "percentage", Type: schema.Decimal, Constraints: []schema.Constraint{schema.Min("0")}},
		{Name: "type", Type: schema.String, Constraints: []schema.Constraint{
			schema.OneOf(string(PreOpen), string(Continuous), string(Lunch), string(CloseAuction)),
		}},
	})
}

// Transforms is the per-row chain applied after validation.
func Transforms() transformer.Pipeline {
	return transformer.Pipeline{builtin.Compare{Left: "end", Op: builtin.OpGT, Right: "start"}}
}

// ValidationError explains why a profile file was refused.
type ValidationError struct {
	Path    string
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("profile %s: line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

// Options tunes loading. The zero value is usable.
type Options struct {
	Logger  *slog.Logger
	Workers int
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Load returns the first of paths that loads and validates, falling back to
// TWAP when none does. Typical use is Load(ctx, opt, symbolFile, marketFile).
// The error is non-nil only when ctx is done.
func Load(ctx context.Context, opt Options, paths ...string) (*Profile, error) {
	log := opt.logger()
	for _, path := range paths {
		if path == "" {
			continue
		}
		p, err := LoadFile(ctx, path, opt)
		if err == nil {
			log.Info("profile: loaded", "path", path, "buckets", p.Len())
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("profile: rejected", "path", path, "err", err)
	}
	log.Info("profile: generating TWAP profile")
	return TWAP(), nil
}

// LoadFile reads and validates one profile file.
func LoadFile(ctx context.Context, path string, opt Options) (*Profile, error) {
	log := opt.logger()
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tok := csvparser.New(rc, csvparser.DefaultOptions())
	hdr, err := tok.ReadHeader()
	if err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("invalid or missing header: %v", err)}
	}
	if got := strings.Join(hdr, ","); got != Header {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("invalid header %q, expected %q", got, Header)}
	}

	var rows sink.Collect
	sum, err := ingest.Run(ctx, tok, Schema(), Transforms(), &rows, ingest.Options{
		Job:                      profileJob,
		Logger:                   log,
		Workers:                  opt.Workers,
		MaxRowLength:             4,
		MaxRejectedDetailsStored: 1,
		StopOnFirstError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	switch sum.Status {
	case ingest.Completed:
	case ingest.Halted:
		return nil, rejectError(path, sum)
	default:
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, &ValidationError{Path: path, Message: "ingest ended " + string(sum.Status)}
	}

	entries := make([]Entry, 0, sum.RowsAccepted)
	for _, rec := range rows.Records() {
		e, err := entryOf(rec)
		if err != nil {
			return nil, &ValidationError{Path: path, Line: rec.Line, Message: err.Error()}
		}
		entries = append(entries, e)
	}
	if err := Validate(entries, log); err != nil {
		return nil, &ValidationError{Path: path, Message: err.Error()}
	}
	return newProfile(path, entries), nil
}

func rejectError(path string, sum ingest.Summary) error {
	if len(sum.Rejected) == 0 || len(sum.Rejected[0].Errors) == 0 {
		return &ValidationError{Path: path, Message: "row rejected"}
	}
	fe := sum.Rejected[0].Errors[0]
	msg := string(fe.Reason)
	if fe.Column != "" {
		msg += " on " + fe.Column
	}
	if fe.Message != "" {
		msg += ": " + fe.Message
	}
	return &ValidationError{Path: path, Line: fe.Line, Message: msg}
}

func entryOf(rec record.Record) (Entry, error) {
	start, ok1 := rec.Values["start"].(time.Time)
	end, ok2 := rec.Values["end"].(time.Time)
	pct, ok3 := rec.Values["percentage"].(decimal.Decimal)
	typ, ok4 := rec.Values["type"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Entry{}, errors.New("unexpected value types")
	}
	return Entry{Start: clockOf(start), End: clockOf(end), Percentage: pct.InexactFloat64(), Type: BucketType(typ)}, nil
}

// Validate checks a profile as a whole: non-empty, contiguous, per-type
// session lengths, and a percentage total of 1. Buckets heavier than 30%
// are logged as warnings.
func Validate(entries []Entry, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if len(entries) == 0 {
		return errors.New("no data entries found")
	}
	for i := 0; i+1 < len(entries); i++ {
		if entries[i].End != entries[i+1].Start {
			return fmt.Errorf("gap detected between entries at %s", FormatClock(entries[i].End))
		}
	}

	minutes := make(map[BucketType]int64)
	var order []BucketType
	for _, e := range entries {
		if _, ok := minutes[e.Type]; !ok {
			order = append(order, e.Type)
		}
		minutes[e.Type] += int64((e.End - e.Start) / time.Minute)
	}
	for _, t := range order {
		want, ok := expectedMinutes[t]
		if ok && minutes[t] != want {
			return fmt.Errorf("invalid %s duration: %d, expected %d minutes", t, minutes[t], want)
		}
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.Percentage))
	}
	if f := total.InexactFloat64(); math.Abs(f-1) > sumTolerance {
		return fmt.Errorf("total percentage does not sum to 1.0: %s", total.String())
	}

	for _, e := range entries {
		if e.Percentage > heavyBucket {
			log.Warn("profile: heavy bucket", "span", e.span(), "percent", fmt.Sprintf("%.2f", e.Percentage*100))
		}
	}
	return nil
}
