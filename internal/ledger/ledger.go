// Package ledger derives player and register balances from a transaction log.
// Every function here is pure: the same transactions always produce the same
// figures, before or after a persistence round trip.
package ledger

import "github.com/shopspring/decimal"

type Kind string

const (
	KindBuyIn   Kind = "buy-in"
	KindCashOut Kind = "cash-out"
	KindRefund  Kind = "refund"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBuyIn, KindCashOut, KindRefund:
		return true
	}
	return false
}

type Method string

const (
	MethodCash            Method = "cash"
	MethodCard            Method = "card"
	MethodInstantTransfer Method = "instant-transfer"
	MethodVoucher         Method = "voucher"
)

// Methods lists the settlement methods in display order.
var Methods = []Method{MethodCash, MethodCard, MethodInstantTransfer, MethodVoucher}

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodInstantTransfer, MethodVoucher:
		return true
	}
	return false
}

// Entry is the part of a transaction the engine reads.
type Entry struct {
	Kind    Kind
	Chips   decimal.Decimal
	Payment decimal.Decimal
	Method  Method
}

// Position is a player's running totals over their transactions.
type Position struct {
	Purchases decimal.Decimal
	Returns   decimal.Decimal
	Payments  map[Method]decimal.Decimal
}

// Tally folds entries into a Position. Refunds count as returns alongside
// cash-outs.
func Tally(entries []Entry) Position {
	pos := Position{
		Purchases: decimal.Zero,
		Returns:   decimal.Zero,
		Payments:  make(map[Method]decimal.Decimal, len(Methods)),
	}
	for _, method := range Methods {
		pos.Payments[method] = decimal.Zero
	}
	for _, entry := range entries {
		if entry.Kind == KindBuyIn {
			pos.Purchases = pos.Purchases.Add(entry.Chips)
		} else {
			pos.Returns = pos.Returns.Add(entry.Chips)
		}
		pos.Payments[entry.Method] = pos.Payments[entry.Method].Add(entry.Payment)
	}
	return pos
}

// TotalPayments is the sum of payments across every method.
func (p Position) TotalPayments() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range p.Payments {
		total = total.Add(amount)
	}
	return total
}

// Balance is returns - purchases + payments.
func (p Position) Balance() decimal.Decimal {
	return p.Returns.Sub(p.Purchases).Add(p.TotalPayments())
}

// PlayerBalance is the net balance of one player's transactions.
func PlayerBalance(entries []Entry) decimal.Decimal {
	return Tally(entries).Balance()
}

// Contribution is the signed amount a single entry adds to its player's balance.
func Contribution(entry Entry) decimal.Decimal {
	if entry.Kind == KindBuyIn {
		return entry.Payment.Sub(entry.Chips)
	}
	return entry.Chips.Add(entry.Payment)
}

type Movement struct {
	Method   Method
	Received decimal.Decimal
	Paid     decimal.Decimal
	Balance  decimal.Decimal
}

type Summary struct {
	ChipsInPlay    decimal.Decimal
	PendingDebits  decimal.Decimal
	PendingCredits decimal.Decimal
	FinalBalance   decimal.Decimal
	Movements      []Movement
}

// Summarize aggregates player positions into a register summary. Outgoing
// payments are not tracked separately from chip returns, so Paid is always
// zero.
func Summarize(positions []Position) Summary {
	summary := Summary{
		ChipsInPlay:    decimal.Zero,
		PendingDebits:  decimal.Zero,
		PendingCredits: decimal.Zero,
	}
	received := make(map[Method]decimal.Decimal, len(Methods))
	for _, pos := range positions {
		balance := pos.Balance()
		summary.ChipsInPlay = summary.ChipsInPlay.Add(balance)
		if balance.IsNegative() {
			summary.PendingDebits = summary.PendingDebits.Sub(balance)
		} else {
			summary.PendingCredits = summary.PendingCredits.Add(balance)
		}
		for method, amount := range pos.Payments {
			received[method] = received[method].Add(amount)
		}
	}
	summary.FinalBalance = summary.ChipsInPlay
	summary.Movements = make([]Movement, 0, len(Methods))
	for _, method := range Methods {
		in := received[method]
		summary.Movements = append(summary.Movements, Movement{
			Method:   method,
			Received: in,
			Paid:     decimal.Zero,
			Balance:  in,
		})
	}
	return summary
}
