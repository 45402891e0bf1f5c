package service

import (
	"context"
	"math"
	"ramadanprep/core"
	"ramadanprep/logger"
	"ramadanprep/models"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// PrepResearcher runs the search-grounded preparation query.
type PrepResearcher interface {
	PrepResearch(ctx context.Context, year int) (string, []models.Source, error)
}

// StartDateLayout is how the Ramadan start date is presented.
const StartDateLayout = "January 2, 2006"

var numberedTip = regexp.MustCompile(`^\d+\.\s*`)

type cachedPrep struct {
	tips    []string
	sources []models.Source
}

// PrepService answers the countdown and preparation tips.
// Successful grounded answers are cached; failures are retried on the next call.
type PrepService struct {
	researcher PrepResearcher
	start      time.Time
	timeout    time.Duration
	cache      *cache.Cache
	now        func() time.Time
}

// NewPrepService constructs a prep service for the given Ramadan start date.
func NewPrepService(researcher PrepResearcher, start time.Time, ttl, timeout time.Duration) *PrepService {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PrepService{
		researcher: researcher,
		start:      start,
		timeout:    timeout,
		cache:      cache.New(ttl, 2*ttl),
		now:        time.Now,
	}
}

// Get returns the prep info. It never fails: model errors yield default tips without sources.
func (s *PrepService) Get(ctx context.Context) models.PrepInfo {
	info := models.PrepInfo{
		DaysRemaining: DaysUntil(s.start, s.now()),
		StartDate:     s.start.Format(StartDateLayout),
		Sources:       []models.Source{},
	}

	key := s.cacheKey()
	if v, ok := s.cache.Get(key); ok {
		c := v.(cachedPrep)
		info.Tips = append([]string(nil), c.tips...)
		info.Sources = append(info.Sources, c.sources...)
		return info
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, sources, err := s.researcher.PrepResearch(ctx, s.start.Year())
	if err != nil {
		core.LogErrorWithContext(core.SourcePrep, "Prep research failed", err, map[string]interface{}{"year": s.start.Year()})
		info.Tips = models.DefaultPrepTips()
		info.Fallback = true
		return info
	}

	info.Tips = ParseTips(text)
	if sources != nil {
		info.Sources = sources
	}
	s.cache.SetDefault(key, cachedPrep{tips: info.Tips, sources: info.Sources})
	logger.Info("Prep research cached", "tips", len(info.Tips), "sources", len(info.Sources))
	return info
}

// Invalidate drops the cached answer.
func (s *PrepService) Invalidate() {
	s.cache.Flush()
}

// Cached reports whether a grounded answer is cached.
func (s *PrepService) Cached() bool {
	_, ok := s.cache.Get(s.cacheKey())
	return ok
}

func (s *PrepService) cacheKey() string {
	return "prep:" + strconv.Itoa(s.start.Year())
}

// ParseTips keeps the lines that start with "<number>." and strips that prefix.
// Without any numbered line the default tips are returned.
func ParseTips(text string) []string {
	var tips []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !numberedTip.MatchString(line) {
			continue
		}
		if tip := strings.TrimSpace(numberedTip.ReplaceAllString(line, "")); tip != "" {
			tips = append(tips, tip)
		}
	}
	if len(tips) == 0 {
		return models.DefaultPrepTips()
	}
	return tips
}

// DaysUntil returns the whole days left until start, rounded up, never negative.
func DaysUntil(start, now time.Time) int {
	days := math.Ceil(start.Sub(now).Hours() / 24)
	return int(math.Max(0, days))
}
