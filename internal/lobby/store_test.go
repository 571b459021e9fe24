package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestConcurrentJoinsTakeOneSeat(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewStore(rdb, time.Hour)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, &Lobby{Code: "LB-JOIN01", CreatorID: "host", State: StateOpen})
	if err != nil || !ok {
		t.Fatalf("Reserve: %v %v", ok, err)
	}

	const n = 5
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		seated int
		errs   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			count, err := s.AddParticipant(ctx, "LB-JOIN01", fmt.Sprintf("guest%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if count != 2 {
				t.Errorf("seated guest should see two participants, got %d", count)
			}
			seated++
		}(i)
	}
	wg.Wait()

	if seated != 1 {
		t.Fatalf("expected exactly one seated guest, got %d (errors %v)", seated, errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrFull) {
			t.Fatalf("losing joins should report ErrFull, got %v", err)
		}
	}
	ids, err := s.Participants(ctx, "LB-JOIN01")
	if err != nil || len(ids) != 2 {
		t.Fatalf("Participants: %v %v", ids, err)
	}
}
