package strategy

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

func init() {
	Register("hold", newHold)
	Register("threshold", newThreshold)
	Register("maker", newMaker)
}

// hold never trades. Useful as a control leg and for auditing the
// decision stream itself.
type hold struct {
	id string
}

func newHold(id string, _ gjson.Result) (Strategy, error) {
	return &hold{id: id}, nil
}

func (h *hold) Name() string { return h.id }

func (h *hold) OnTick(TickView) Decision { return Keep() }

// threshold rests a single BUY_YES limit at max_ask until it holds qty
// YES contracts, then cancels its quotes and sits on the position.
type threshold struct {
	id     string
	maxAsk int
	qty    int
}

func newThreshold(id string, params gjson.Result) (Strategy, error) {
	s := &threshold{
		id:     id,
		maxAsk: int(params.Get("max_ask").Int()),
		qty:    int(params.Get("qty").Int()),
	}
	if s.maxAsk < 1 || s.maxAsk > 99 {
		return nil, fmt.Errorf("threshold: max_ask must be 1-99, got %d", s.maxAsk)
	}
	if s.qty < 1 {
		return nil, fmt.Errorf("threshold: qty must be >= 1, got %d", s.qty)
	}
	return s, nil
}

func (s *threshold) Name() string { return s.id }

func (s *threshold) OnTick(v TickView) Decision {
	if v.YesQty() >= s.qty {
		if len(v.Resting) == 0 {
			return Keep()
		}
		return Desired() // position filled, cancel remaining quotes
	}

	want := model.Order{
		Ticker:     v.Tick.Ticker,
		Side:       model.SideYes,
		Kind:       model.KindLimit,
		Buy:        true,
		PriceCents: s.maxAsk,
		Quantity:   s.qty - v.YesQty(),
		Source:     s.id,
	}
	if len(v.Resting) == 1 && v.Resting[0] == want {
		return Keep()
	}
	return Desired(want)
}

// maker quotes both sides of the book inside the spread, one leg per
// source tag so the bid and ask inventories can be inspected and unwound
// independently.
type maker struct {
	id         string
	halfSpread int
	qty        int
	maxPos     int
}

func newMaker(id string, params gjson.Result) (Strategy, error) {
	s := &maker{
		id:         id,
		halfSpread: int(params.Get("half_spread").Int()),
		qty:        int(params.Get("qty").Int()),
		maxPos:     int(params.Get("max_pos").Int()),
	}
	if s.halfSpread < 1 {
		return nil, fmt.Errorf("maker: half_spread must be >= 1, got %d", s.halfSpread)
	}
	if s.qty < 1 {
		return nil, fmt.Errorf("maker: qty must be >= 1, got %d", s.qty)
	}
	if s.maxPos == 0 {
		s.maxPos = 10 * s.qty
	}
	return s, nil
}

func (s *maker) Name() string { return s.id }

func (s *maker) OnTick(v TickView) Decision {
	mid := v.Tick.Mid()
	bid := mid - s.halfSpread
	ask := mid + s.halfSpread
	if bid < 1 || ask > 99 {
		return Desired() // no sane quote at the extremes
	}

	var orders []model.Order
	if v.YesQty() < s.maxPos {
		orders = append(orders, model.Order{
			Ticker:     v.Tick.Ticker,
			Side:       model.SideYes,
			Kind:       model.KindLimit,
			Buy:        true,
			PriceCents: bid,
			Quantity:   s.qty,
			Source:     s.id + "-bid",
		})
	}
	if v.NoQty() < s.maxPos {
		// Buying NO at (100 - ask) is offering YES at ask.
		orders = append(orders, model.Order{
			Ticker:     v.Tick.Ticker,
			Side:       model.SideNo,
			Kind:       model.KindLimit,
			Buy:        true,
			PriceCents: 100 - ask,
			Quantity:   s.qty,
			Source:     s.id + "-ask",
		})
	}
	return Desired(orders...)
}
