// Package simulate manufactures synthetic inbound events for resources
// when no real provider delivers them. Intervals are randomized within
// min/max bounds so the traffic does not look perfectly periodic.
package simulate

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/service"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
)

// Intervals bounds the randomized delay between synthetic events.
type Intervals struct {
	SMSMin, SMSMax time.Duration
	TxMin, TxMax   time.Duration
}

// DefaultIntervals matches the reference behavior: SMS every 20-40s,
// transactions every 30-90s.
func DefaultIntervals() Intervals {
	return Intervals{
		SMSMin: 20 * time.Second,
		SMSMax: 40 * time.Second,
		TxMin:  30 * time.Second,
		TxMax:  90 * time.Second,
	}
}

// Generator drives the SMS and transaction loops.
type Generator struct {
	svc       *service.Service
	store     store.Store
	intervals Intervals
}

// New creates a Generator routing synthetic events through svc.
func New(svc *service.Service, st store.Store, iv Intervals) *Generator {
	if iv.SMSMin <= 0 || iv.SMSMax < iv.SMSMin {
		iv.SMSMin, iv.SMSMax = DefaultIntervals().SMSMin, DefaultIntervals().SMSMax
	}
	if iv.TxMin <= 0 || iv.TxMax < iv.TxMin {
		iv.TxMin, iv.TxMax = DefaultIntervals().TxMin, DefaultIntervals().TxMax
	}
	return &Generator{svc: svc, store: st, intervals: iv}
}

// Run starts both loops and blocks until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.loop(ctx, g.intervals.SMSMin, g.intervals.SMSMax, g.SimulateSMS)
	}()
	go func() {
		defer wg.Done()
		g.loop(ctx, g.intervals.TxMin, g.intervals.TxMax, g.SimulateTransaction)
	}()
	wg.Wait()
}

func (g *Generator) loop(ctx context.Context, min, max time.Duration, fire func(context.Context)) {
	for {
		t := time.NewTimer(randBetween(min, max))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			fire(ctx)
		}
	}
}

// SimulateSMS delivers one synthetic SMS to a random active number.
func (g *Generator) SimulateSMS(ctx context.Context) {
	res := g.randomActive(ctx, identity.KindPhone)
	if res == nil {
		return
	}
	if _, err := g.svc.AddSMS(ctx, res.Key, RandomSender(), RandomSMSBody()); err != nil {
		slog.Warn("simulate: sms failed", "number", res.Key, "err", err)
		return
	}
	slog.Info("simulate: sms", "number", res.Key)
}

// SimulateTransaction posts one synthetic transaction to a random active
// card. Locked cards are skipped without noise.
func (g *Generator) SimulateTransaction(ctx context.Context) {
	res := g.randomActive(ctx, identity.KindCard)
	if res == nil || res.Locked {
		return
	}
	if _, err := g.svc.AddTransaction(ctx, res.Key, RandomMerchant(), RandomAmount(), "USD"); err != nil {
		if errors.Is(err, identity.ErrLocked) {
			return
		}
		slog.Warn("simulate: transaction failed", "card", res.Key, "err", err)
		return
	}
	slog.Info("simulate: transaction", "card", res.Key)
}

func (g *Generator) randomActive(ctx context.Context, kind identity.Kind) *identity.Resource {
	resources, err := g.store.ListActive(ctx, kind)
	if err != nil {
		slog.Error("simulate: list active failed", "kind", kind, "err", err)
		return nil
	}
	if len(resources) == 0 {
		return nil
	}
	return resources[rand.Intn(len(resources))]
}

func randBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
