package domain

import (
	"fmt"
	"strings"
	"time"
)

// CaptionTrack is a caption language offered for a video
type CaptionTrack struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CaptionSegment is one timed line of a caption track
type CaptionSegment struct {
	Start    time.Duration
	Duration time.Duration
	Text     string
}

// Caption holds the timed text of one track
type Caption struct {
	Code     string
	Name     string
	Segments []CaptionSegment
}

// SRT renders the caption as SubRip text
func (c *Caption) SRT() string {
	var b strings.Builder
	n := 0
	for _, seg := range c.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", n, srtTimestamp(seg.Start), srtTimestamp(seg.Start+seg.Duration), text)
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
