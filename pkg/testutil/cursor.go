package testutil

import (
	"context"
	"iter"
	"time"

	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/incremental"
)

// DateLayout is the date format understood by DateCursor.
const DateLayout = "2006-01-02"

// DateCursorConfig configures a DateCursor.
type DateCursorConfig struct {
	// Field is both the record field compared and the state key. Defaults to "updated_at".
	Field string
	// Start is the exclusive lower bound used when no state is set.
	Start string
	// End is the inclusive upper bound of the last slice.
	End string
	// StepDays splits the window into slices of this many days; 0 means one slice.
	StepDays int
}

// DateCursor is a minimal datetime cursor over ISO dates. Slices are
// half-open windows (start, end]; the state is the greatest Field value seen.
type DateCursor struct {
	cfg        DateCursorConfig
	lowerBound string
	latest     string

	// Updates counts UpdateState calls.
	Updates int
}

// NewDateCursor returns a cursor with no state.
func NewDateCursor(cfg DateCursorConfig) *DateCursor {
	if cfg.Field == "" {
		cfg.Field = "updated_at"
	}
	return &DateCursor{cfg: cfg, lowerBound: cfg.Start}
}

// SetInitialState restores the latest seen value.
func (c *DateCursor) SetInitialState(state incremental.State) error {
	raw, ok := state[c.cfg.Field]
	if !ok {
		return nil
	}
	v, ok := raw.(string)
	if !ok {
		return errors.Newf(errors.ErrorTypeData, "cursor value %v is not a date string", raw)
	}
	if _, err := time.Parse(DateLayout, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "cursor value is not a date")
	}
	c.latest = v
	if v > c.lowerBound {
		c.lowerBound = v
	}
	return nil
}

// StreamSlices yields the windows between the lower bound and End.
func (c *DateCursor) StreamSlices(ctx context.Context) iter.Seq2[incremental.CursorSlice, error] {
	return func(yield func(incremental.CursorSlice, error) bool) {
		start, err := time.Parse(DateLayout, c.lowerBound)
		if err != nil {
			yield(nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid start date"))
			return
		}
		end, err := time.Parse(DateLayout, c.cfg.End)
		if err != nil {
			yield(nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid end date"))
			return
		}
		for start.Before(end) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			next := end
			if c.cfg.StepDays > 0 {
				if stepped := start.AddDate(0, 0, c.cfg.StepDays); stepped.Before(end) {
					next = stepped
				}
			}
			slice := incremental.CursorSlice{
				"start": start.Format(DateLayout),
				"end":   next.Format(DateLayout),
			}
			if !yield(slice, nil) {
				return
			}
			start = next
		}
	}
}

// UpdateState advances the state to record's Field value when it is newer.
func (c *DateCursor) UpdateState(_ incremental.CursorSlice, record incremental.Record) error {
	c.Updates++
	v, ok := record[c.cfg.Field].(string)
	if !ok {
		return errors.Newf(errors.ErrorTypeData, "record has no %q date", c.cfg.Field)
	}
	if v > c.latest {
		c.latest = v
	}
	return nil
}

// GetStreamState returns {Field: latest}, or an empty state before any record.
func (c *DateCursor) GetStreamState() incremental.State {
	if c.latest == "" {
		return incremental.State{}
	}
	return incremental.State{c.cfg.Field: c.latest}
}

// ShouldBeSynced reports whether record is newer than the restored state.
func (c *DateCursor) ShouldBeSynced(record incremental.Record) bool {
	v, ok := record[c.cfg.Field].(string)
	return ok && v > c.lowerBound
}

// RequestParams returns {"since": start, "until": end}.
func (c *DateCursor) RequestParams(_ incremental.State, slice incremental.CursorSlice, _ incremental.PageToken) (incremental.Mapping, error) {
	return incremental.Mapping{"since": slice["start"], "until": slice["end"]}, nil
}

// RequestHeaders returns no headers.
func (c *DateCursor) RequestHeaders(incremental.State, incremental.CursorSlice, incremental.PageToken) (incremental.Mapping, error) {
	return incremental.Mapping{}, nil
}

// RequestBodyData returns no body fields.
func (c *DateCursor) RequestBodyData(incremental.State, incremental.CursorSlice, incremental.PageToken) (incremental.Mapping, error) {
	return incremental.Mapping{}, nil
}

// RequestBodyJSON returns no body fields.
func (c *DateCursor) RequestBodyJSON(incremental.State, incremental.CursorSlice, incremental.PageToken) (incremental.Mapping, error) {
	return incremental.Mapping{}, nil
}

// DateCursorConstructor builds DateCursors and counts them.
type DateCursorConstructor struct {
	Config  DateCursorConfig
	Created []*DateCursor
}

// NewCursor implements incremental.CursorConstructor.
func (c *DateCursorConstructor) NewCursor() (incremental.Cursor, error) {
	cur := NewDateCursor(c.Config)
	c.Created = append(c.Created, cur)
	return cur, nil
}

// RecordsInSlice returns the records whose field value falls inside the
// slice's (start, end] window.
func RecordsInSlice(records []incremental.Record, slice incremental.CursorSlice, field string) []incremental.Record {
	start, _ := slice["start"].(string)
	end, _ := slice["end"].(string)
	var out []incremental.Record
	for _, r := range records {
		v, ok := r[field].(string)
		if ok && v > start && v <= end {
			out = append(out, r)
		}
	}
	return out
}
