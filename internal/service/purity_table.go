package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PurityTable maps a karat type to its gold fraction in (0, 1].
type PurityTable interface {
	Purity(karatTypeID int) (decimal.Decimal, error)
}

// StaticPurityTable is a fixed karat → purity map.
type StaticPurityTable map[int]decimal.Decimal

func (t StaticPurityTable) Purity(karatTypeID int) (decimal.Decimal, error) {
	p, ok := t[karatTypeID]
	if !ok {
		return decimal.Zero, invalidInput("unknown karat type %d", karatTypeID)
	}
	return p, nil
}

// Karats lists the configured karat types in ascending order.
func (t StaticPurityTable) Karats() []int {
	out := make([]int, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// ParsePurityTable reads "24:1.000,21:0.875,18:0.750".
func ParsePurityTable(raw string) (StaticPurityTable, error) {
	table := make(StaticPurityTable)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		karatStr, purityStr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("purity entry %q: expected <karat>:<purity>", entry)
		}
		karat, err := strconv.Atoi(strings.TrimSpace(karatStr))
		if err != nil || karat <= 0 {
			return nil, fmt.Errorf("purity entry %q: invalid karat", entry)
		}
		purity, err := decimal.NewFromString(strings.TrimSpace(purityStr))
		if err != nil {
			return nil, fmt.Errorf("purity entry %q: %w", entry, err)
		}
		if !purity.IsPositive() || purity.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("purity entry %q: purity must be in (0, 1]", entry)
		}
		if _, dup := table[karat]; dup {
			return nil, fmt.Errorf("purity entry %q: karat %d listed twice", entry, karat)
		}
		table[karat] = purity
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("purity table is empty")
	}
	return table, nil
}
