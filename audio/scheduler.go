package audio

import (
	"sync"
	"time"
)

// ScheduledChunk is a decoded playback chunk placed on the client's timeline.
type ScheduledChunk struct {
	Seq      uint64
	StartAt  time.Duration
	Duration time.Duration
}

// End is when the chunk finishes playing.
func (c ScheduledChunk) End() time.Duration {
	return c.StartAt + c.Duration
}

// PlaybackScheduler sequences model audio back-to-back on a running timestamp.
// Offsets are relative to the session clock; the client starts each chunk at StartAt.
type PlaybackScheduler struct {
	mu       sync.Mutex
	next     time.Duration
	seq      uint64
	inFlight map[uint64]ScheduledChunk
}

func NewPlaybackScheduler() *PlaybackScheduler {
	return &PlaybackScheduler{inFlight: make(map[uint64]ScheduledChunk)}
}

// Schedule places a chunk of length d no earlier than now and right after the previous chunk.
func (p *PlaybackScheduler) Schedule(now, d time.Duration) ScheduledChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.next = max(p.next, now)
	p.seq++
	c := ScheduledChunk{Seq: p.seq, StartAt: p.next, Duration: d}
	p.next += d
	p.inFlight[c.Seq] = c
	return c
}

// Reap forgets chunks that finished playing by now and returns how many remain.
func (p *PlaybackScheduler) Reap(now time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for seq, c := range p.inFlight {
		if c.End() <= now {
			delete(p.inFlight, seq)
		}
	}
	return len(p.inFlight)
}

// Interrupt drops every in-flight chunk and rewinds the timeline.
// It returns the sequence numbers the client must stop.
func (p *PlaybackScheduler) Interrupt() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	stopped := make([]uint64, 0, len(p.inFlight))
	for seq := range p.inFlight {
		stopped = append(stopped, seq)
	}
	clear(p.inFlight)
	p.next = 0
	return stopped
}

// Next returns the running timestamp where the next chunk would start.
func (p *PlaybackScheduler) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// InFlight returns the number of chunks scheduled but not yet reaped.
func (p *PlaybackScheduler) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}
