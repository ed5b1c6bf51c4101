package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/ben-ranford/why/internal/analysis"
)

// Tracker renders one progress bar per analysis stage.
type Tracker struct {
	out   io.Writer
	mu    sync.Mutex
	stage analysis.Stage
	bar   *progressbar.ProgressBar
}

func NewTracker(out io.Writer) *Tracker {
	return &Tracker{out: out}
}

func newBar(out io.Writer, label string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Observe has the analysis.ProgressFunc signature. A new stage replaces the
// current bar.
func (t *Tracker) Observe(stage analysis.Stage, done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil || stage != t.stage {
		t.finish()
		t.stage = stage
		t.bar = newBar(t.out, stage.String(), total)
	}
	_ = t.bar.Set(done)
	if done >= total {
		t.finish()
	}
}

// Done clears whatever bar is still on screen.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finish()
}

func (t *Tracker) finish() {
	if t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	t.bar = nil
}
