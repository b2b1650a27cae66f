package agent

import (
	"encoding/json"

	"github.com/LaithAlz/me-agent/internal/domain"
)

// AssistantName и инструкции регистрируются один раз при ленивой инициализации.
const (
	assistantName = "LaithReplica"

	assistantInstructions = "You are a decision-making shopping agent.\n" +
		"Prioritize ecosystem fit, minimalism, ergonomic value.\n" +
		"Reject flashy designs, unknown brands, anything previously rejected.\n" +
		"After selecting a cart, explain the reasoning."
)

type promptConstraints struct {
	MaxTotal         float64  `json:"max_total"`
	AllowedCats      []string `json:"allowed_categories"`
	BrandPreferences []string `json:"brand_preferences"`
	PriceSensitivity *int     `json:"price_sensitivity"`
	Avoid            []string `json:"avoid"`
	HardRules        []string `json:"hard_rules,omitempty"`
	NotesRule        string   `json:"notes_rule,omitempty"`

	OutputFormat map[string]interface{} `json:"output_format,omitempty"`
}

type decisionPrompt struct {
	Task        string                 `json:"task"`
	Intent      string                 `json:"intent"`
	Constraints promptConstraints      `json:"constraints"`
	Inventory   []domain.InventoryItem `json:"inventory"`
}

type explainPrompt struct {
	Task          string            `json:"task"`
	Intent        string            `json:"intent"`
	Constraints   promptConstraints `json:"constraints"`
	Guidelines    []string          `json:"guidelines"`
	CartReference string            `json:"cart_reference"`
}

func buildDecisionPrompt(intent string, budget float64, allowed, brands []string, ps *int, avoid []string, inventory []domain.InventoryItem) string {
	p := decisionPrompt{
		Task:   "Select a cart from inventory that best matches intent and preferences while respecting constraints.",
		Intent: intent,
		Constraints: promptConstraints{
			MaxTotal:         budget,
			AllowedCats:      nonNil(allowed),
			BrandPreferences: nonNil(brands),
			PriceSensitivity: ps,
			Avoid:            nonNil(avoid),
			HardRules: []string{
				"Return ONLY valid JSON. No markdown, no extra text.",
				"If allowed_categories is non-empty, ONLY choose items whose tags include at least one allowed category token.",
				"If a brand appears in both brand_preferences and avoid, brand_preferences wins for this run.",
				"Reject unknown brands, RGB, flashy items, anything in avoid.",
			},
			NotesRule: "notes should be 1-2 sentences max",
			OutputFormat: map[string]interface{}{
				"type": "json_only",
				"schema": map[string]interface{}{
					"items": []map[string]string{{"name": "string", "brand": "string", "price": "number", "tags": "string[]"}},
					"total": "number",
					"notes": "string",
				},
			},
		},
		Inventory: inventory,
	}
	raw, _ := json.Marshal(p)
	return string(raw)
}

func buildExplainPrompt(intent string, budget float64, allowed, brands []string, ps *int, avoid []string) string {
	p := explainPrompt{
		Task:   "Explain the chosen cart to the user in plain language.",
		Intent: intent,
		Constraints: promptConstraints{
			MaxTotal:         budget,
			AllowedCats:      nonNil(allowed),
			BrandPreferences: nonNil(brands),
			PriceSensitivity: ps,
			Avoid:            nonNil(avoid),
		},
		Guidelines: []string{
			"Do not mention internal memory IDs or labels like 'Memory 1'.",
			"If intent conflicts with allowed categories, reinterpret intent within allowed categories and state that assumption briefly.",
			"If a brand appears in both brand_preferences and avoid, treat brand_preferences as the session override for this run.",
			"Structure: summary, constraints followed, why other items were rejected, how it matches preferences.",
		},
		CartReference: "Use the latest decision in this thread as the chosen cart.",
	}
	raw, _ := json.Marshal(p)
	return string(raw)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
