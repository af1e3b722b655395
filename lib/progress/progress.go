package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"example.com/peerwire/lib/core/adapter/clock"

	"github.com/dustin/go-humanize"
)

const barWidth = 30

// Counters are bumped by the download path and read by the sampler. Session
// holds bytes since the last sample.
type Counters struct {
	Total   atomic.Int64
	Session atomic.Int64
}

func (c *Counters) Add(n int) {
	c.Total.Add(int64(n))
	c.Session.Add(int64(n))
}

type Sampler struct {
	counters *Counters
	total    int64
	interval time.Duration
	clock    clock.Clock
	out      io.Writer

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	lastRate float64
}

func NewSampler(c *Counters, total int64, interval time.Duration, clk clock.Clock, out io.Writer) *Sampler {
	return &Sampler{
		counters: c,
		total:    total,
		interval: interval,
		clock:    clk,
		out:      out,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sampler) Start() {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.stopCh:
				return
			case <-s.clock.After(s.interval):
				s.lastRate = s.sample()
				fmt.Fprint(s.out, "\r"+Render(s.counters.Total.Load(), s.total, s.lastRate))
			}
		}
	}()
}

// sample drains the per-interval counter and returns bytes per second.
func (s *Sampler) sample() float64 {
	delta := s.counters.Session.Swap(0)
	return float64(delta) / s.interval.Seconds()
}

// Stop ends sampling and prints a final line.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.done
		fmt.Fprintln(s.out, "\r"+Render(s.counters.Total.Load(), s.total, s.lastRate))
	})
}

// Render formats one progress line.
func Render(done, total int64, bytesPerSec float64) string {
	var ratio float64
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * barWidth)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return fmt.Sprintf("[%s] %5.1f%% %10s/s %s / %s",
		bar,
		ratio*100,
		humanize.Bytes(uint64(bytesPerSec)),
		humanize.Bytes(uint64(done)),
		humanize.Bytes(uint64(total)),
	)
}
