package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
)

var (
	openColumns         = []string{"OPEN", "OPENPRICE", "PRICE_OPEN"}
	securityFaceColumns = []string{"FACEVALUE", "FACE", "FACEVALUE_RUR"}
)

// Reference points for period opens, in days before today.
const (
	weekDays  = 7
	monthDays = 30
	yearDays  = 365

	// dayFallbackDays is how far back the day open looks when the exchange
	// has no live open. Nine calendar days hold five trading days even
	// across a weekend plus a holiday.
	dayFallbackDays = 9
	// periodWindowDays widens a period target forward to skip non-trading days.
	periodWindowDays = 4
)

// OpenValueService resolves absolute opening prices for a bond.
type OpenValueService struct {
	iss moex.Provider
	now func() time.Time
}

// NewOpenValueService creates a new OpenValueService. A nil clock uses time.Now.
func NewOpenValueService(iss moex.Provider, now func() time.Time) *OpenValueService {
	if now == nil {
		now = time.Now
	}
	return &OpenValueService{
		iss: iss,
		now: now,
	}
}

// AbsolutePrice converts a percent-of-face price into currency units, rounded
// to six digits. A missing or non-positive face is taken as 1000.
func AbsolutePrice(pct *float64, face float64) *float64 {
	if pct == nil {
		return nil
	}
	if face <= 0 {
		face = moex.DefaultFaceValue
	}
	v := round6(*pct * face / 100)
	return &v
}

// openCandidate is one history or marketdata row with a usable open.
type openCandidate struct {
	date time.Time
	open float64
	face float64
}

// Resolve returns the day, week, month and year opens of a bond. Each value is
// independently nil when it could not be determined. sec, when given, avoids
// a second lookup of the live security.
func (s *OpenValueService) Resolve(ctx context.Context, secid string, sec *moex.Security) model.OpenValues {
	var ov model.OpenValues

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov.Day = s.logMiss(secid, "day")(s.DayOpen(gctx, secid, sec))
		return nil
	})
	g.Go(func() error {
		ov.Week = s.logMiss(secid, "week")(s.PeriodOpen(gctx, secid, weekDays, sec))
		return nil
	})
	g.Go(func() error {
		ov.Month = s.logMiss(secid, "month")(s.PeriodOpen(gctx, secid, monthDays, sec))
		return nil
	})
	g.Go(func() error {
		ov.Year = s.logMiss(secid, "year")(s.PeriodOpen(gctx, secid, yearDays, sec))
		return nil
	})
	_ = g.Wait()

	return ov
}

func (s *OpenValueService) logMiss(secid, point string) func(*float64, error) *float64 {
	return func(v *float64, err error) *float64 {
		if err != nil {
			log.Debug().Err(err).Str("secid", secid).Str("point", point).Msg("open value unavailable")
		}
		return v
	}
}

// DayOpen returns today's open from live marketdata, falling back to the
// latest open in the history of the previous days.
func (s *OpenValueService) DayOpen(ctx context.Context, secid string, sec *moex.Security) (*float64, error) {
	if sec == nil {
		found, err := s.iss.FindSecurity(ctx, secid)
		if err != nil {
			log.Debug().Err(err).Str("secid", secid).Msg("live security unavailable for day open")
		} else {
			sec = &found
		}
	}

	if sec != nil {
		if v, ok := liveOpen(*sec); ok {
			return &v, nil
		}
	}

	end := today(s.now())
	rows, err := s.iss.History(ctx, secid, end.AddDate(0, 0, -dayFallbackDays), end.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	candidates := historyOpens(rows, securityFace(sec))
	if len(candidates) == 0 {
		return nil, nil
	}
	c := candidates[len(candidates)-1]
	return AbsolutePrice(&c.open, c.face), nil
}

// PeriodOpen returns the earliest open in the few trading days starting
// `days` days ago.
func (s *OpenValueService) PeriodOpen(ctx context.Context, secid string, days int, sec *moex.Security) (*float64, error) {
	target := today(s.now()).AddDate(0, 0, -days)
	rows, err := s.iss.History(ctx, secid, target, target.AddDate(0, 0, periodWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	candidates := historyOpens(rows, securityFace(sec))
	if len(candidates) == 0 {
		return nil, nil
	}
	c := candidates[0]
	return AbsolutePrice(&c.open, c.face), nil
}

// liveOpen picks the first marketdata row with an open. The securities face
// is preferred over the row's own; a row with an open but no face at all is
// used with the default face only when no row resolves both.
func liveOpen(sec moex.Security) (float64, bool) {
	face := securityFace(&sec)

	var fallback *float64
	for _, row := range sec.MarketData {
		open, ok := rowOpen(row)
		if !ok {
			continue
		}
		if face > 0 {
			return *AbsolutePrice(&open, face), true
		}
		if rf, ok := rowFace(row); ok {
			return *AbsolutePrice(&open, rf), true
		}
		if fallback == nil {
			fallback = &open
		}
	}
	if fallback != nil {
		return *AbsolutePrice(fallback, moex.DefaultFaceValue), true
	}
	return 0, false
}

// historyOpens returns the rows with an open, sorted by trade date. When a day
// is quoted on several boards the first row of that day is kept.
func historyOpens(rows []moex.Row, secFace float64) []openCandidate {
	seen := map[time.Time]bool{}
	var out []openCandidate
	for _, row := range rows {
		date := row.Date("TRADEDATE")
		if date == nil || seen[*date] {
			continue
		}
		open, ok := rowOpen(row)
		if !ok {
			continue
		}
		face := secFace
		if rf, ok := rowFace(row); ok {
			face = rf
		}
		seen[*date] = true
		out = append(out, openCandidate{date: *date, open: open, face: face})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func rowOpen(row moex.Row) (float64, bool) {
	for _, col := range openColumns {
		if v, ok := row.Float(col); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func rowFace(row moex.Row) (float64, bool) {
	for _, col := range securityFaceColumns {
		if v, ok := row.Float(col); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// securityFace returns the nominal from the securities rows, or 0 if unknown.
func securityFace(sec *moex.Security) float64 {
	if sec == nil {
		return 0
	}
	for _, row := range sec.Securities {
		if v, ok := rowFace(row); ok {
			return v
		}
	}
	return 0
}
