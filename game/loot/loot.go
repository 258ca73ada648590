// Package loot implements the challenge-rating-bracketed item drop table.
package loot

import (
	"github.com/lowfell/questworld/server/model"
)

// RarityWeight is one (rarity, weight) pair in a bracket's table. Weights in
// a bracket sum to 1.
type RarityWeight struct {
	Rarity model.Rarity
	Weight float64
}

// DropConfig is a bracket's drop chance and ordered rarity weighting.
type DropConfig struct {
	DropChance float64
	Weights    []RarityWeight
}

// brackets are contiguous and gapless over [0, inf); each entry applies to
// challenge ratings below its Max (the last entry is open-ended).
var brackets = []struct {
	Max float64
	Cfg DropConfig
}{
	{25, DropConfig{DropChance: 0.20, Weights: []RarityWeight{
		{model.RarityCommon, 0.8}, {model.RarityUncommon, 0.2},
	}}},
	{50, DropConfig{DropChance: 0.35, Weights: []RarityWeight{
		{model.RarityCommon, 0.5}, {model.RarityUncommon, 0.4}, {model.RarityRare, 0.1},
	}}},
	{80, DropConfig{DropChance: 0.50, Weights: []RarityWeight{
		{model.RarityCommon, 0.2}, {model.RarityUncommon, 0.4}, {model.RarityRare, 0.3}, {model.RarityEpic, 0.1},
	}}},
	{120, DropConfig{DropChance: 0.65, Weights: []RarityWeight{
		{model.RarityUncommon, 0.1}, {model.RarityRare, 0.4}, {model.RarityEpic, 0.35}, {model.RarityLegendary, 0.15},
	}}},
	{0, DropConfig{DropChance: 0.80, Weights: []RarityWeight{
		{model.RarityRare, 0.2}, {model.RarityEpic, 0.4}, {model.RarityLegendary, 0.4},
	}}},
}

// DropConfigFor returns the drop bracket for a challenge rating.
func DropConfigFor(challengeRating float64) DropConfig {
	for _, b := range brackets[:len(brackets)-1] {
		if challengeRating < b.Max {
			return b.Cfg
		}
	}
	return brackets[len(brackets)-1].Cfg
}

// RollRarity decides whether a drop happens and, if so, which rarity, from
// two uniform rolls in [0,1]. The rarity walk accumulates the bracket weights
// and takes the first rarity whose cumulative sum reaches rarityRoll;
// floating-point overshoot falls back to the last rarity.
func RollRarity(challengeRating, dropRoll, rarityRoll float64) (model.Rarity, bool) {
	cfg := DropConfigFor(challengeRating)
	if dropRoll > cfg.DropChance {
		return "", false
	}
	sum := 0.0
	for _, w := range cfg.Weights {
		sum += w.Weight
		if sum >= rarityRoll {
			return w.Rarity, true
		}
	}
	return cfg.Weights[len(cfg.Weights)-1].Rarity, true
}

// PickItemID chooses an item from the preferred rarity's pool using roll to
// index it. An empty pool falls back downward toward common first, then
// upward toward legendary. Returns "" only when every pool is empty.
func PickItemID(itemsByRarity map[model.Rarity][]string, preferred model.Rarity, roll float64) string {
	idx := 0
	for i, r := range model.RarityOrder {
		if r == preferred {
			idx = i
			break
		}
	}
	if id := pickFrom(itemsByRarity, model.RarityOrder[idx], roll); id != "" {
		return id
	}
	for i := idx - 1; i >= 0; i-- {
		if id := pickFrom(itemsByRarity, model.RarityOrder[i], roll); id != "" {
			return id
		}
	}
	for i := idx + 1; i < len(model.RarityOrder); i++ {
		if id := pickFrom(itemsByRarity, model.RarityOrder[i], roll); id != "" {
			return id
		}
	}
	return ""
}

func pickFrom(itemsByRarity map[model.Rarity][]string, r model.Rarity, roll float64) string {
	pool := itemsByRarity[r]
	if len(pool) == 0 {
		return ""
	}
	i := int(roll * float64(len(pool)))
	if i >= len(pool) {
		i = len(pool) - 1
	}
	return pool[i]
}
