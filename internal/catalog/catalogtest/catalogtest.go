// Package catalogtest builds small catalogs for tests in other packages.
package catalogtest

import "github.com/SlpAus/daily-guess-backend/internal/catalog"

// Sample 返回一个包含三个实体的目录，使用 DefaultSchema
func Sample() *catalog.Catalog {
	c, err := catalog.New(catalog.DefaultSchema, Entities())
	if err != nil {
		panic(err)
	}
	return c
}

// Entities 返回 Sample 使用的实体
func Entities() []catalog.Entity {
	return []catalog.Entity{
		{
			ID:   1,
			Name: "Aurélien",
			Attributes: map[string]any{
				"age":             float64(27),
				"cheveux":         []any{"brun", "court"},
				"JeuPref":         []any{"LoL", "Valorant"},
				"RelationFamille": "Cousin",
				"PcPref":          []any{"PC 3"},
				"régio":           []any{"Bretagne"},
				"neuillitude":     "semi neuille",
				"RankLol":         "Gold 3",
				"BoissonPref":     []any{"Coca"},
			},
		},
		{
			ID:   2,
			Name: "Bastien",
			Attributes: map[string]any{
				"age":             float64(31),
				"cheveux":         []any{"blond"},
				"JeuPref":         []any{"LoL"},
				"RelationFamille": "Oncle",
				"PcPref":          "PC 1",
				"régio":           []any{"Normandie", "Bretagne"},
				"neuillitude":     "neuille",
				"RankLol":         "Emerald 1",
				"BoissonPref":     []any{"Bière", "Coca"},
			},
		},
		{
			ID:   3,
			Name: "Chloé",
			Attributes: map[string]any{
				"age":             float64(24),
				"cheveux":         []any{"roux", "long"},
				"JeuPref":         []any{"Minecraft"},
				"RelationFamille": "Cousine",
				"PcPref":          "PC 2",
				"régio":           []any{"Alsace"},
				"neuillitude":     "Élevée",
				"RankLol":         "Joue pas",
				"BoissonPref":     []any{"Thé"},
			},
		},
	}
}
