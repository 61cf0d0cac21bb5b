package main

import (
	"context"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/portfolio"
	"github.com/tianhm/nautilus-trader/internal/recorder"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

// journaledPortfolio records every account and position event it receives before applying it.
type journaledPortfolio struct {
	*portfolio.Portfolio
	journal *recorder.Writer
}

func (p journaledPortfolio) UpdateAccount(ev schema.AccountState) {
	p.record(ev)
	p.Portfolio.UpdateAccount(ev)
}

func (p journaledPortfolio) UpdatePosition(ev schema.PositionEvent) {
	p.record(ev)
	p.Portfolio.UpdatePosition(ev)
}

func (p journaledPortfolio) record(ev schema.Event) {
	if err := p.journal.TryAppend(ev); err != nil {
		logs.Warnf("journal %s %s, err: %+v", ev.Kind(), ev.EventID(), err)
	}
}

// replayJournal rebuilds a portfolio from a journal and returns it with the event count per kind.
func replayJournal(ctx context.Context, cfg recorder.PlaybackConfig) (*portfolio.Portfolio, map[schema.EventKind]int, error) {
	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		return nil, nil, err
	}
	pf := portfolio.New()
	counts := make(map[schema.EventKind]int)
	err = pb.Run(ctx, func(ev schema.Event) error {
		counts[ev.Kind()]++
		switch e := ev.(type) {
		case schema.AccountState:
			pf.UpdateAccount(e)
		case schema.PositionEvent:
			pf.UpdatePosition(e)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return pf, counts, nil
}

func runReplay(ctx context.Context, dir string, speed float64, currencies []model.Currency) error {
	pf, counts, err := replayJournal(ctx, recorder.PlaybackConfig{Dir: dir, Speed: speed})
	if err != nil {
		return err
	}
	logs.Infof("journal %s replayed, counts: %v", dir, counts)
	for _, p := range pf.OpenPositions() {
		logs.Infof("open position %s %s net %s, realized: %s", p.ID, p.Symbol, p.SignedQty(), p.RealizedPnL)
	}
	for _, ccy := range currencies {
		logs.Infof("realized pnl: %s", pf.RealizedPnL(ccy))
	}
	return nil
}
