package game

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ClockConfig carries the limits a timer is created with. Zero disables a limit.
type ClockConfig struct {
	MoveTimeLimit   time.Duration `json:"move_time_limit"`
	GlobalTimeLimit time.Duration `json:"global_time_limit"`
}

// Timer tracks per-side remaining time and the current move window.
// Remaining time only changes when Charge is called, so a stored timer plus a
// wall-clock reading is enough to recompute the live clocks after a reconnect.
type Timer struct {
	MoveTimeLimit    time.Duration
	GlobalTimeLimit  time.Duration
	CurrentMoveStart time.Time
	GameStartTime    time.Time
	CurrentPlayer    Color

	sides     [2]Color
	remaining [4]time.Duration
}

// NewTimer starts a clock with first to move.
func NewTimer(first, second Color, cfg ClockConfig, now time.Time) *Timer {
	now = now.UTC()
	t := &Timer{
		MoveTimeLimit:    cfg.MoveTimeLimit,
		GlobalTimeLimit:  cfg.GlobalTimeLimit,
		CurrentMoveStart: now,
		GameStartTime:    now,
		CurrentPlayer:    first,
		sides:            [2]Color{first, second},
	}
	if second < first {
		t.sides = [2]Color{second, first}
	}
	t.remaining[first] = cfg.GlobalTimeLimit
	t.remaining[second] = cfg.GlobalTimeLimit
	return t
}

// Clone returns an independent copy.
func (t *Timer) Clone() *Timer {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Sides returns the two colors the timer was created for, in Color order.
func (t *Timer) Sides() [2]Color { return t.sides }

// Stored returns the remaining time as of the last charge.
func (t *Timer) Stored(c Color) time.Duration {
	if int(c) >= len(t.remaining) {
		return 0
	}
	return t.remaining[c]
}

// Elapsed is the time spent on the current move, never negative.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	d := now.Sub(t.CurrentMoveStart)
	if d < 0 {
		return 0
	}
	return d
}

// Remaining returns the live remaining time for c at now.
func (t *Timer) Remaining(c Color, now time.Time) time.Duration {
	r := t.Stored(c)
	if c == t.CurrentPlayer {
		r -= t.Elapsed(now)
	}
	if r < 0 {
		return 0
	}
	return r
}

// MoveDeadline returns when the current move window closes, or zero when unlimited.
func (t *Timer) MoveDeadline() time.Time {
	if t.MoveTimeLimit <= 0 {
		return time.Time{}
	}
	return t.CurrentMoveStart.Add(t.MoveTimeLimit)
}

// Expired reports whether the side to move ran out of time at now.
func (t *Timer) Expired(now time.Time) bool {
	elapsed := t.Elapsed(now)
	if t.GlobalTimeLimit > 0 && t.Stored(t.CurrentPlayer)-elapsed <= 0 {
		return true
	}
	if t.MoveTimeLimit > 0 && elapsed >= t.MoveTimeLimit {
		return true
	}
	return false
}

// Charge deducts the current move window from the side to move, clamped at zero,
// and reports the amount charged.
func (t *Timer) Charge(now time.Time) time.Duration {
	elapsed := t.Elapsed(now)
	if t.GlobalTimeLimit > 0 {
		r := t.remaining[t.CurrentPlayer] - elapsed
		if r < 0 {
			r = 0
		}
		t.remaining[t.CurrentPlayer] = r
	}
	return elapsed
}

// Handover gives the move to next and opens a new move window at now.
func (t *Timer) Handover(next Color, now time.Time) {
	t.CurrentPlayer = next
	t.CurrentMoveStart = now.UTC()
}

// Enabled reports whether any limit is active.
func (t *Timer) Enabled() bool { return t.MoveTimeLimit > 0 || t.GlobalTimeLimit > 0 }

const remainingSuffix = "_time_remaining"

func (t *Timer) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"move_time_limit":    seconds(t.MoveTimeLimit),
		"global_time_limit":  seconds(t.GlobalTimeLimit),
		"current_move_start": t.CurrentMoveStart.UTC().Format(time.RFC3339Nano),
		"game_start_time":    t.GameStartTime.UTC().Format(time.RFC3339Nano),
		"current_player":     t.CurrentPlayer.String(),
	}
	for _, c := range t.sides {
		if c != NoColor {
			out[c.String()+remainingSuffix] = seconds(t.remaining[c])
		}
	}
	return json.Marshal(out)
}

func (t *Timer) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var dec Timer
	var err error
	if dec.MoveTimeLimit, err = durationField(raw, "move_time_limit"); err != nil {
		return err
	}
	if dec.GlobalTimeLimit, err = durationField(raw, "global_time_limit"); err != nil {
		return err
	}
	if dec.CurrentMoveStart, err = timeField(raw, "current_move_start"); err != nil {
		return err
	}
	if dec.GameStartTime, err = timeField(raw, "game_start_time"); err != nil {
		return err
	}
	if v, ok := raw["current_player"]; ok {
		if err := json.Unmarshal(v, &dec.CurrentPlayer); err != nil {
			return fmt.Errorf("timer current_player: %w", err)
		}
	}
	n := 0
	for key := range raw {
		if !strings.HasSuffix(key, remainingSuffix) {
			continue
		}
		c, err := ParseColor(strings.TrimSuffix(key, remainingSuffix))
		if err != nil || c == NoColor {
			return fmt.Errorf("timer field %q: unknown color", key)
		}
		d, err := durationField(raw, key)
		if err != nil {
			return err
		}
		if n >= len(dec.sides) {
			return fmt.Errorf("timer has more than two sides")
		}
		dec.remaining[c] = d
		dec.sides[n] = c
		n++
	}
	// map iteration is unordered; keep the side order stable
	if dec.sides[0] > dec.sides[1] && dec.sides[1] != NoColor {
		dec.sides[0], dec.sides[1] = dec.sides[1], dec.sides[0]
	}
	*t = dec
	return nil
}

func seconds(d time.Duration) float64 { return d.Seconds() }

func durationField(raw map[string]json.RawMessage, key string) (time.Duration, error) {
	v, ok := raw[key]
	if !ok {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, fmt.Errorf("timer %s: %w", key, err)
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

func timeField(raw map[string]json.RawMessage, key string) (time.Time, error) {
	v, ok := raw[key]
	if !ok {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return time.Time{}, fmt.Errorf("timer %s: %w", key, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timer %s: %w", key, err)
	}
	return ts.UTC(), nil
}
