package calendar

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// 2024-01-08 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("invalid window", func(t *testing.T) {
		t.Parallel()
		_, err := New(Clock{Hour: 17}, Clock{Hour: 8}, []time.Weekday{time.Monday})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("got %v, want ErrInvalidWindow", err)
		}
	})

	t.Run("no workdays", func(t *testing.T) {
		t.Parallel()
		_, err := New(Clock{Hour: 8}, Clock{Hour: 17}, nil)
		if !errors.Is(err, ErrNoWorkdays) {
			t.Errorf("got %v, want ErrNoWorkdays", err)
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		c := Default()
		if got := c.HoursPerDay(); got != 9 {
			t.Errorf("HoursPerDay() = %g, want 9", got)
		}
		if got := len(c.Workdays()); got != 5 {
			t.Errorf("len(Workdays()) = %d, want 5", got)
		}
	})
}

func TestAlignStart(t *testing.T) {
	t.Parallel()
	c := Default()

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"inside window", at(8, 10, 30), at(8, 10, 30)},
		{"before window", at(8, 7, 0), at(8, 8, 0)},
		{"at window end", at(8, 17, 0), at(9, 8, 0)},
		{"friday evening", at(12, 18, 0), at(15, 8, 0)},
		{"saturday", at(13, 10, 0), at(15, 8, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.AlignStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("AlignStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlignFinish(t *testing.T) {
	t.Parallel()
	c := Default()

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"inside window", at(9, 11, 0), at(9, 11, 0)},
		{"at window end", at(9, 17, 0), at(9, 17, 0)},
		{"after window", at(9, 20, 0), at(9, 17, 0)},
		{"before window", at(9, 6, 0), at(8, 17, 0)},
		{"monday midnight", at(15, 0, 0), at(12, 17, 0)},
		{"sunday", at(14, 12, 0), at(12, 17, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.AlignFinish(tt.in); !got.Equal(tt.want) {
				t.Errorf("AlignFinish(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddHours(t *testing.T) {
	t.Parallel()
	c := Default()

	tests := []struct {
		name  string
		from  time.Time
		hours float64
		want  time.Time
	}{
		{"zero aligns", at(13, 9, 0), 0, at(15, 8, 0)},
		{"same day", at(8, 8, 0), 4, at(8, 12, 0)},
		{"exactly one day lands on day end", at(8, 8, 0), 9, at(8, 17, 0)},
		{"sixteen hours", at(8, 8, 0), 16, at(9, 15, 0)},
		{"across weekend", at(12, 16, 0), 2, at(15, 9, 0)},
		{"fractional", at(8, 8, 0), 1.5, at(8, 9, 30)},
		{"negative delegates", at(15, 9, 0), -2, at(12, 16, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.AddHours(tt.from, tt.hours); !got.Equal(tt.want) {
				t.Errorf("AddHours(%v, %g) = %v, want %v", tt.from, tt.hours, got, tt.want)
			}
		})
	}
}

func TestSubtractHours(t *testing.T) {
	t.Parallel()
	c := Default()

	if got := c.SubtractHours(at(9, 15, 0), 16); !got.Equal(at(8, 8, 0)) {
		t.Errorf("SubtractHours(Tue 15:00, 16) = %v, want Mon 08:00", got)
	}
	if got := c.SubtractHours(at(15, 9, 0), 2); !got.Equal(at(12, 16, 0)) {
		t.Errorf("SubtractHours(Mon 09:00, 2) = %v, want Fri 16:00", got)
	}
}

func TestHoursBetween(t *testing.T) {
	t.Parallel()
	c := Default()

	tests := []struct {
		name     string
		from, to time.Time
		want     float64
	}{
		{"reversed", at(9, 8, 0), at(8, 8, 0), 0},
		{"same day", at(8, 9, 0), at(8, 12, 0), 3},
		{"two days", at(8, 8, 0), at(9, 15, 0), 16},
		{"full week", at(8, 8, 0), at(15, 8, 0), 45},
		{"outside window", at(8, 17, 0), at(8, 18, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.HoursBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("HoursBetween = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	t.Parallel()
	c := Default()
	start := at(8, 8, 0)

	for _, h := range []float64{0, 0.5, 9, 16, 45, 100.25, 333} {
		date := c.OffsetToDate(h, start)
		if got := c.DateToOffset(date, start); math.Abs(got-h) > 1e-9 {
			t.Errorf("DateToOffset(OffsetToDate(%g)) = %g", h, got)
		}
	}
}

func TestOffsetToDate_SnapsProjectStart(t *testing.T) {
	t.Parallel()
	c := Default()

	// Saturday start snaps to Monday morning.
	if got := c.OffsetToDate(0, at(13, 10, 0)); !got.Equal(at(15, 8, 0)) {
		t.Errorf("OffsetToDate(0, Sat) = %v, want Mon 08:00", got)
	}
	if got := c.OffsetToDate(9, at(8, 8, 0)); !got.Equal(at(8, 17, 0)) {
		t.Errorf("OffsetToDate(9) = %v, want Mon 17:00", got)
	}
	if got := c.StartDate(9, at(8, 8, 0)); !got.Equal(at(9, 8, 0)) {
		t.Errorf("StartDate(9) = %v, want Tue 08:00", got)
	}
}

func TestDateToOffset_BeforeStart(t *testing.T) {
	t.Parallel()
	c := Default()

	if got := c.DateToOffset(at(12, 16, 0), at(15, 8, 0)); got != -1 {
		t.Errorf("DateToOffset(Fri 16:00, Mon 08:00) = %g, want -1", got)
	}
}

func TestCustomCalendar(t *testing.T) {
	t.Parallel()
	c, err := New(Clock{Hour: 6}, Clock{Hour: 14}, []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Thursday 2024-01-11 12:00 plus 4h runs into Sunday.
	if got := c.AddHours(at(11, 12, 0), 4); !got.Equal(at(14, 8, 0)) {
		t.Errorf("AddHours = %v, want Sun 08:00", got)
	}
}

func TestWindowAcrossDSTChange(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	c, err := New(Clock{Hour: 8}, Clock{Hour: 17}, []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Clocks spring forward at 02:00 on Sunday 2024-03-10.
	local := func(day, hour int) time.Time {
		return time.Date(2024, time.March, day, hour, 0, 0, 0, ny)
	}

	if got := c.AlignStart(local(10, 6)); !got.Equal(local(10, 8)) {
		t.Errorf("AlignStart(06:00) = %v, want 08:00 local", got)
	}
	if got := c.AddHours(local(10, 8), 9); !got.Equal(local(10, 17)) {
		t.Errorf("AddHours(08:00, 9) = %v, want 17:00 local", got)
	}
	if got := c.AddHours(local(9, 16), 2); !got.Equal(local(10, 9)) {
		t.Errorf("AddHours(Sat 16:00, 2) = %v, want Sun 09:00 local", got)
	}
	if got := c.HoursBetween(local(10, 8), local(11, 8)); got != 9 {
		t.Errorf("HoursBetween(Sun 08:00, Mon 08:00) = %g, want 9", got)
	}
}

func TestParseWeekdays(t *testing.T) {
	t.Parallel()

	days, err := ParseWeekdays([]string{"mon", "Tuesday", "4", "mon"})
	if err != nil {
		t.Fatalf("ParseWeekdays: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Tuesday, time.Friday}
	if len(days) != len(want) {
		t.Fatalf("got %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d] = %v, want %v", i, days[i], want[i])
		}
	}

	for _, bad := range []string{"funday", "7", "-1"} {
		if _, err := ParseWeekdays([]string{bad}); err == nil {
			t.Errorf("ParseWeekdays(%q): expected error", bad)
		}
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	c, err := ParseClock("07:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c.Hour != 7 || c.Minute != 30 {
		t.Errorf("got %v, want 07:30", c)
	}
	if _, err := ParseClock("7am"); err == nil {
		t.Error("expected error for 7am")
	}
	if c, _ := ParseClock("24:00"); c.Hour != 24 {
		t.Errorf("24:00 parsed as %v", c)
	}
}

func TestString(t *testing.T) {
	t.Parallel()
	s := Default().String()
	for _, want := range []string{"08:00-17:00", "9 hours", "Mon, Tue, Wed, Thu, Fri"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
