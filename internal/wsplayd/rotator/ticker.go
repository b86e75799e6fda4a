package rotator

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

const (
	// DefaultTickerSpeed is the scroll speed in pixels per second
	DefaultTickerSpeed = 50.0
	// MinTickerDuration keeps short message sets from scrolling too fast
	MinTickerDuration = 5 * time.Second
	// TickerSeparator joins messages in the message set
	TickerSeparator = "  •  "
)

// ScrollPlan is how the shell animates the ticker strip
type ScrollPlan struct {
	// Copies of the message set in the strip
	Copies int
	// Duration of one scroll cycle, which moves the strip by one set width
	Duration time.Duration
}

// PlanScroll sizes the ticker strip. The set is repeated to cover twice the
// container width, with at least two copies, plus one spare copy. Speed is in
// pixels per second; non-positive speeds use DefaultTickerSpeed.
func PlanScroll(setWidth, containerWidth, speed float64) ScrollPlan {
	if speed <= 0 {
		speed = DefaultTickerSpeed
	}
	if setWidth <= 0 {
		return ScrollPlan{Copies: 3, Duration: MinTickerDuration}
	}

	cover := int(math.Ceil(2 * containerWidth / setWidth))
	if cover < 2 {
		cover = 2
	}

	d := time.Duration(setWidth / speed * float64(time.Second))
	if d < MinTickerDuration {
		d = MinTickerDuration
	}
	return ScrollPlan{Copies: cover + 1, Duration: d}
}

// MessageSet concatenates messages ordered by position then id, skipping blank
// ones. The fingerprint changes whenever the text does.
func MessageSet(messages []v1alpha1.TickerMessage) (text, fingerprint string) {
	sorted := make([]v1alpha1.TickerMessage, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})

	parts := make([]string, 0, len(sorted))
	for _, m := range sorted {
		if t := strings.TrimSpace(m.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ""
	}

	text = strings.Join(parts, TickerSeparator)
	return text, strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// Ticker holds the scrolling message set. Scrolling itself is a CSS
// animation in the shell; the engine only plans it from measurements.
type Ticker struct {
	speed       float64
	text        string
	fingerprint string
	measured    bool
	last        v1alpha1.TickerMeasurement
	plan        ScrollPlan
	onChange    func()
}

// NewTicker creates an empty ticker scrolling at speed pixels per second
func NewTicker(speed float64, onChange func()) *Ticker {
	return &Ticker{speed: speed, onChange: onChange}
}

// Empty reports whether there is no text to scroll
func (t *Ticker) Empty() bool {
	return t.text == ""
}

// Fingerprint identifies the current message set
func (t *Ticker) Fingerprint() string {
	return t.fingerprint
}

// Plan returns the current plan and whether it is based on a measurement
func (t *Ticker) Plan() (ScrollPlan, bool) {
	return t.plan, t.measured
}

// SetMessages replaces the message set and asks the shell to measure it
// again. A new set discards the old plan.
func (t *Ticker) SetMessages(messages []v1alpha1.TickerMessage) {
	text, fingerprint := MessageSet(messages)
	if fingerprint != t.fingerprint {
		t.plan = ScrollPlan{}
	}
	t.text = text
	t.fingerprint = fingerprint
	t.measured = false
	t.changed()
}

// SetSpeed changes the scroll speed and replans from the last measurement
func (t *Ticker) SetSpeed(speed float64) {
	if speed == t.speed {
		return
	}
	t.speed = speed
	if t.measured {
		t.Measured(t.last)
	}
}

// Measured applies the shell's measurement. Measurements of another message
// set are ignored and false is returned.
func (t *Ticker) Measured(m v1alpha1.TickerMeasurement) bool {
	if t.text == "" || m.Fingerprint != t.fingerprint {
		return false
	}
	t.plan = PlanScroll(m.SetWidth, m.ContainerWidth, t.speed)
	t.last = m
	t.measured = true
	t.changed()
	return true
}

// Frame renders the ticker, nil when empty
func (t *Ticker) Frame() *v1alpha1.TickerFrame {
	if t.text == "" {
		return nil
	}
	return &v1alpha1.TickerFrame{
		Text:            t.text,
		Fingerprint:     t.fingerprint,
		Measured:        t.measured,
		Copies:          t.plan.Copies,
		DurationSeconds: t.plan.Duration.Seconds(),
	}
}

func (t *Ticker) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}
