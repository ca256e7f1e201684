package service

import (
	"testing"
	"time"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectorLots() []model.OwnershipLot {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	supplier := uuid.New()
	mk := func(age int, weight, unitCost string, s uuid.UUID) model.OwnershipLot {
		lot := model.NewLot(model.LotIdentity{Item: model.RawGoldRef(18), BranchID: uuid.New(), SupplierID: s},
			"USD", base.Add(time.Duration(age)*time.Hour))
		lot.TotalWeight = dec(weight)
		lot.UnitCost = dec(unitCost)
		return *lot
	}
	// Deliberately out of age order.
	return []model.OwnershipLot{
		mk(2, "1", "120", uuid.New()),
		mk(0, "2", "100", supplier),
		mk(1, "3", "110", supplier),
	}
}

func TestSelectors_Order(t *testing.T) {
	lots := selectorLots()

	fifo := FIFO().Order(lots)
	assert.Equal(t, []string{"100", "110", "120"}, unitCosts(fifo))

	lifo := LIFO().Order(lots)
	assert.Equal(t, []string{"120", "110", "100"}, unitCosts(lifo))

	specific := SpecificSupplier(lots[1].SupplierID).Order(lots)
	assert.Equal(t, []string{"100", "110"}, unitCosts(specific))

	assert.Equal(t, "120", lots[0].UnitCost.String(), "ordering must not reorder the input")
}

func unitCosts(lots []model.OwnershipLot) []string {
	out := make([]string, len(lots))
	for i := range lots {
		out[i] = lots[i].UnitCost.String()
	}
	return out
}

func TestSelectorByName(t *testing.T) {
	supplier := uuid.New()
	for name, want := range map[string]string{"": "fifo", "fifo": "fifo", "lifo": "lifo"} {
		sel, err := SelectorByName(name, nil)
		require.NoError(t, err)
		assert.Equal(t, want, sel.Name())
	}

	sel, err := SelectorByName("specific_supplier", &supplier)
	require.NoError(t, err)
	assert.Equal(t, "specific_supplier", sel.Name())

	_, err = SelectorByName("specific_supplier", nil)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	_, err = SelectorByName("cheapest", nil)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestPlanConsumption(t *testing.T) {
	ordered := FIFO().Order(selectorLots())

	plan, available := planConsumption(ordered, dec("4"))
	requireDecimal(t, "6", available)
	require.Len(t, plan, 2)
	requireDecimal(t, "2", plan[0].Measure)
	requireDecimal(t, "200", plan[0].Cost)
	requireDecimal(t, "2", plan[1].Measure)
	requireDecimal(t, "220", plan[1].Cost)

	plan, available = planConsumption(ordered, dec("10"))
	requireDecimal(t, "6", available)
	assert.Len(t, plan, 3, "a short plan still reports every layer it could take")
}

func TestWeightedAverage(t *testing.T) {
	requireDecimal(t, "150", weightedAverage(dec("5"), dec("100"), dec("5"), dec("200")))
	requireDecimal(t, "42", weightedAverage(dec("0"), dec("0"), dec("0"), dec("42")))
	requireDecimal(t, "1.23", RoundMoney(dec("1.2349")))
	requireDecimal(t, "1.235", RoundWeight(dec("1.2349")))
}
