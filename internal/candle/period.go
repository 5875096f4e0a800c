package candle

import "fmt"

// Period is a short symbol such as "1m", "4H" or "1Dutc". It has no state of
// its own; every operation below is a pure function over the symbol table.
type Period string

const (
	Period1m    Period = "1m"
	Period3m    Period = "3m"
	Period5m    Period = "5m"
	Period15m   Period = "15m"
	Period30m   Period = "30m"
	Period1H    Period = "1H"
	Period2H    Period = "2H"
	Period4H    Period = "4H"
	Period6H    Period = "6H"
	Period12H   Period = "12H"
	Period1D    Period = "1D"
	Period1Dutc Period = "1Dutc"
	Period4D    Period = "4D"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

var periodMillis = map[Period]int64{
	Period1m:    1 * msPerMinute,
	Period3m:    3 * msPerMinute,
	Period5m:    5 * msPerMinute,
	Period15m:   15 * msPerMinute,
	Period30m:   30 * msPerMinute,
	Period1H:    1 * msPerHour,
	Period2H:    2 * msPerHour,
	Period4H:    4 * msPerHour,
	Period6H:    6 * msPerHour,
	Period12H:   12 * msPerHour,
	Period1D:    1 * msPerDay,
	Period1Dutc: 1 * msPerDay,
	Period4D:    4 * msPerDay,
}

// cronSpec mirrors spec §6's fixed period → cron expression table.
var cronSpec = map[Period]string{
	Period1m:    "0 */1 * * * *",
	Period3m:    "0 */3 * * * *",
	Period5m:    "0 */5 * * * *",
	Period15m:   "0 */15 * * * *",
	Period30m:   "0 */30 * * * *",
	Period1H:    "0 0 * * * *",
	Period2H:    "0 0 */2 * * *",
	Period4H:    "0 0 */4 * * *",
	Period6H:    "0 0 */6 * * *",
	Period12H:   "0 0 */12 * * *",
	Period1D:    "0 0 0 * * *",
	Period1Dutc: "0 0 0 * * *",
	Period4D:    "0 0 0 */4 * *",
}

// PeriodToMillis returns the bucket width of p in milliseconds. It returns an
// error for an unrecognized symbol rather than silently defaulting.
func PeriodToMillis(p Period) (int64, error) {
	ms, ok := periodMillis[p]
	if !ok {
		return 0, fmt.Errorf("candle: unknown period %q", p)
	}
	return ms, nil
}

// MustPeriodToMillis panics on an unknown period; for call sites where the
// period is a compile-time constant rather than user input.
func MustPeriodToMillis(p Period) int64 {
	ms, err := PeriodToMillis(p)
	if err != nil {
		panic(err)
	}
	return ms
}

// AlignToPeriod truncates ts down to the start of the bucket it falls in:
// align(ts, p) = ts - (ts mod period_to_ms(p)).
//
// 1Dutc aligns against the UTC midnight grid like 1D; the distinction only
// matters when a caller also applies a timezone offset before calling this
// function (see internal/markethours), which this function itself is
// unaware of.
func AlignToPeriod(ts int64, p Period) (int64, error) {
	ms, err := PeriodToMillis(p)
	if err != nil {
		return 0, err
	}
	rem := ts % ms
	if rem < 0 {
		rem += ms
	}
	return ts - rem, nil
}

// IsConfirmedBoundary reports whether ts sits exactly on a period boundary,
// i.e. align(ts, p) == ts.
func IsConfirmedBoundary(ts int64, p Period) (bool, error) {
	aligned, err := AlignToPeriod(ts, p)
	if err != nil {
		return false, err
	}
	return aligned == ts, nil
}

// CronExpr returns the fixed cron schedule for p per the scheduler tick
// surface.
func CronExpr(p Period) (string, error) {
	expr, ok := cronSpec[p]
	if !ok {
		return "", fmt.Errorf("candle: no cron schedule registered for period %q", p)
	}
	return expr, nil
}
