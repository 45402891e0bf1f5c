package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlaybackScheduler_BackToBack(t *testing.T) {
	s := NewPlaybackScheduler()

	a := s.Schedule(100*time.Millisecond, 500*time.Millisecond)
	b := s.Schedule(200*time.Millisecond, 300*time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, a.StartAt)
	assert.Equal(t, a.End(), b.StartAt, "second chunk starts when the first ends")
	assert.Equal(t, 900*time.Millisecond, s.Next())
	assert.Equal(t, 2, s.InFlight())
}

func TestPlaybackScheduler_GapStartsAtNow(t *testing.T) {
	s := NewPlaybackScheduler()
	s.Schedule(0, 200*time.Millisecond)

	c := s.Schedule(2*time.Second, 100*time.Millisecond)
	assert.Equal(t, 2*time.Second, c.StartAt)
}

func TestPlaybackScheduler_Reap(t *testing.T) {
	s := NewPlaybackScheduler()
	s.Schedule(0, 100*time.Millisecond)
	s.Schedule(0, 100*time.Millisecond)

	assert.Equal(t, 1, s.Reap(150*time.Millisecond))
	assert.Equal(t, 0, s.Reap(time.Second))
}

func TestPlaybackScheduler_InterruptResets(t *testing.T) {
	s := NewPlaybackScheduler()
	a := s.Schedule(0, time.Second)
	b := s.Schedule(0, time.Second)

	stopped := s.Interrupt()
	assert.ElementsMatch(t, []uint64{a.Seq, b.Seq}, stopped)
	assert.Zero(t, s.Next())
	assert.Zero(t, s.InFlight())

	c := s.Schedule(300*time.Millisecond, 100*time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, c.StartAt)
	assert.Greater(t, c.Seq, b.Seq)
}
