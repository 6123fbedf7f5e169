package scheduler

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// fakeStore implements only the Store methods the Scheduler/StatusLogger
// touch; embedding a nil repositories.Store satisfies the rest.
type fakeStore struct {
	repositories.Store
	schedule string
}

func (f *fakeStore) GetScheduleConfig(context.Context) (string, error) { return f.schedule, nil }
func (f *fakeStore) SetScheduleConfig(context.Context, string) error   { return nil }
func (f *fakeStore) LogBotStatus(context.Context, entities.BotStatusLevel, string, *time.Time) error {
	return nil
}

func (s *Scheduler) tweetJobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.jobs {
		if strings.HasPrefix(id, tweetJobPrefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// After a Reschedule call with a new schedule, exactly the jobs
// derived from the new schedule exist, and all previous tweet jobs are gone.
func TestScheduler_Reschedule(t *testing.T) {
	sched := New(Config{
		Store:           &fakeStore{schedule: "08:00,12:00,16:00,20:00"},
		DefaultSchedule: "08:00,12:00,16:00,20:00",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sched.Stop(context.Background())

	before := sched.tweetJobIDs()
	if len(before) != 4 {
		t.Fatalf("expected 4 initial tweet jobs, got %v", before)
	}

	sched.Reschedule("09:30,21:00")

	after := sched.tweetJobIDs()
	want := []string{"scheduled_tweet_0930", "scheduled_tweet_2100"}
	if len(after) != len(want) {
		t.Fatalf("got jobs %v, want %v", after, want)
	}
	for i, id := range want {
		if after[i] != id {
			t.Fatalf("got jobs %v, want %v", after, want)
		}
	}
}

func TestDurationUntilNext_WrapsToTomorrow(t *testing.T) {
	now := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	wait := durationUntilNext("00:30", now)
	if wait <= 0 || wait > 2*time.Hour {
		t.Fatalf("expected a short wait into tomorrow, got %v", wait)
	}
}
