package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"eventleader/internal/event"
	"eventleader/internal/util/style"
)

// display renders the latest participant views as a full-screen terminal
// leaderboard, one section per watched event. Views are refreshed by one
// poller per event and redrawn by a separate ticker, so the reset countdown
// keeps moving between fetches.
type display struct {
	out   io.Writer
	codes []string

	mu    sync.Mutex
	views map[string]*fetchedView
}

type fetchedView struct {
	view      *event.View
	fetchedAt time.Time
}

func newDisplay(out io.Writer, codes []string) *display {
	return &display{
		out:   out,
		codes: codes,
		views: make(map[string]*fetchedView, len(codes)),
	}
}

func (d *display) Update(code string, v *event.View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views[code] = &fetchedView{view: v, fetchedAt: time.Now()}
}

func (d *display) Render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	_, _ = b.WriteString("\033[H\033[2J")
	for i, code := range d.codes {
		if i != 0 {
			_, _ = b.WriteString("\n")
		}
		fv, ok := d.views[code]
		switch {
		case !ok:
			fmt.Fprintf(&b, "%v loading...\n", style.WithS("["+code+"]", 36))
		case fv.view == nil:
			fmt.Fprintf(&b, "%v %v\n",
				style.WithS("["+code+"]", 36),
				style.WithS("event not found or reset", 31, 1))
		default:
			renderView(&b, fv)
		}
	}
	_, _ = io.WriteString(d.out, b.String())
}

func renderView(b *strings.Builder, fv *fetchedView) {
	v := fv.view
	ev := v.Event
	fmt.Fprintf(b, "%v  %v\n",
		style.WithS(ev.Name, 1),
		style.WithS("["+ev.Code+"]", 36))

	if left := resetLeft(fv); left != nil {
		fmt.Fprintf(b, "%v %v\n",
			style.WithS("resets in", 33),
			formatCountdown(*left))
	}

	fmt.Fprintf(b, "\n%v\n", style.WithS("Round 1", 4))
	if len(v.Round1) == 0 {
		fmt.Fprintf(b, "  no scores yet\n")
	}
	for _, e := range v.Round1 {
		line := fmt.Sprintf("  %2v. %-24v %8.1f", e.Rank, e.TeamName, e.Score)
		if e.Winner {
			line = style.WithS(line+"  ★", 32, 1)
		}
		fmt.Fprintf(b, "%v\n", line)
	}

	if ev.Round2Active {
		fmt.Fprintf(b, "\n%v\n", style.WithS("Round 2 ("+string(ev.Round2Mode)+")", 4))
		for _, e := range v.Round2 {
			final := "       -"
			if e.Final != nil {
				final = fmt.Sprintf("%8.1f", *e.Final)
			}
			line := fmt.Sprintf("  %2v. %-24v %v", e.Rank, e.TeamName, final)
			if e.Winner {
				line = style.WithS(line+"  ★", 32, 1)
			}
			fmt.Fprintf(b, "%v\n", line)
		}
	}
}

func resetLeft(fv *fetchedView) *time.Duration {
	if fv.view.ResetInMs == nil {
		return nil
	}
	left := time.Duration(*fv.view.ResetInMs)*time.Millisecond - time.Since(fv.fetchedAt)
	left = max(left, 0)
	return &left
}

func formatCountdown(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
