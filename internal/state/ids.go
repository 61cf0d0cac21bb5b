package state

import (
	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
)

// PositionIDGenerator issues ids like P-19700101-000000-000-001-1, numbered per strategy.
type PositionIDGenerator struct {
	traderTag  string
	clock      clock.Clock
	strategies map[model.StrategyID]*ids.Generator
}

func NewPositionIDGenerator(trader model.TraderID, c clock.Clock) *PositionIDGenerator {
	return &PositionIDGenerator{
		traderTag:  trader.Tag,
		clock:      c,
		strategies: make(map[model.StrategyID]*ids.Generator),
	}
}

func (g *PositionIDGenerator) Generate(strategy model.StrategyID) model.PositionID {
	return model.PositionID(g.generator(strategy).Generate())
}

// SetCount resumes numbering for strategy after recovery.
func (g *PositionIDGenerator) SetCount(strategy model.StrategyID, n int) {
	g.generator(strategy).SetCount(n)
}

func (g *PositionIDGenerator) Count(strategy model.StrategyID) int {
	return g.generator(strategy).Count()
}

func (g *PositionIDGenerator) generator(strategy model.StrategyID) *ids.Generator {
	gen, ok := g.strategies[strategy]
	if !ok {
		gen = ids.NewGenerator("P", g.traderTag, strategy.Tag, g.clock)
		g.strategies[strategy] = gen
	}
	return gen
}
