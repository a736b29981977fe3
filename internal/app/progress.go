package app

import (
	"math"

	"github.com/yourusername/streamline-go/internal/domain"
)

// progressReporter turns cumulative byte counts into rounded, non-decreasing progress events.
// A playlist reports member i of count as (i + fraction) / count of the whole.
type progressReporter struct {
	sink  EventSink
	index int
	count int
	last  float64
}

func newProgressReporter(sink EventSink) *progressReporter {
	return &progressReporter{sink: sink, count: 1, last: -1}
}

// Member points subsequent updates at the index-th of count playlist members
func (p *progressReporter) Member(index, count int) *progressReporter {
	p.index = index
	p.count = count
	return p
}

// Update recomputes the percentage from downloaded and total bytes
func (p *progressReporter) Update(downloaded, total int64) {
	if total <= 0 {
		return
	}
	fraction := float64(downloaded) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	p.emit((float64(p.index) + fraction) / float64(p.count) * 100)
}

// Finish reports 100.0 with a blocking send so it is never dropped before the ready event
func (p *progressReporter) Finish() error {
	if p.last >= 100 {
		return nil
	}
	p.last = 100
	return p.sink.Send(domain.NewProgressEvent(100))
}

func (p *progressReporter) emit(percentage float64) {
	rounded := roundPercentage(percentage)
	if rounded <= p.last {
		return
	}
	if p.sink.TrySend(domain.NewProgressEvent(rounded)) {
		p.last = rounded
	}
}

// Last returns the highest percentage emitted so far
func (p *progressReporter) Last() float64 {
	return p.last
}

func roundPercentage(percentage float64) float64 {
	return math.Round(percentage*10) / 10
}
