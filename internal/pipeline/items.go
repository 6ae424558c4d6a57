// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// parseItems decodes the items field from its raw shape. Retail feeds carry
// either a decoded list of item maps, a JSON-encoded list, or a legacy
// pipe-delimited string of "sku,quantity,price" triples.
func parseItems(raw any) ([]models.Item, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("items missing")
	case []models.Item:
		return v, nil
	case []any:
		return itemsFromList(v)
	case []map[string]any:
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return itemsFromList(list)
	case string:
		return itemsFromString(v)
	default:
		return nil, fmt.Errorf("items has unsupported type %T", raw)
	}
}

func itemsFromList(list []any) ([]models.Item, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("items empty")
	}
	items := make([]models.Item, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("items[%d] is not an object", i)
		}
		item := models.Item{}
		if s, err := coerceString(m["sku"]); err == nil {
			item.SKU = s
		} else {
			return nil, fmt.Errorf("items[%d]: sku: %w", i, err)
		}
		qty, err := coerceFloat(m["quantity"])
		if err != nil {
			return nil, fmt.Errorf("items[%d]: quantity: %w", i, err)
		}
		item.Quantity = int(qty)
		price, err := coerceFloat(m["price"])
		if err != nil {
			return nil, fmt.Errorf("items[%d]: price: %w", i, err)
		}
		item.Price = price
		items = append(items, item)
	}
	return items, nil
}

func itemsFromString(s string) ([]models.Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("items empty")
	}
	if strings.HasPrefix(s, "[") {
		var list []map[string]any
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, fmt.Errorf("items JSON: %w", err)
		}
		anyList := make([]any, len(list))
		for i, m := range list {
			anyList[i] = m
		}
		return itemsFromList(anyList)
	}
	// Pipe-delimited triples: "sku,quantity,price|sku,quantity,price".
	parts := strings.Split(s, "|")
	items := make([]models.Item, 0, len(parts))
	for i, part := range parts {
		fields := strings.Split(part, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("items[%d]: want sku,quantity,price, got %q", i, part)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("items[%d]: quantity: %w", i, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: price: %w", i, err)
		}
		items = append(items, models.Item{
			SKU:      strings.TrimSpace(fields[0]),
			Quantity: qty,
			Price:    price,
		})
	}
	return items, nil
}
