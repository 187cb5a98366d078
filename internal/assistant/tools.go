package assistant

import (
	"context"
	"encoding/json"

	"github.com/bazarmoz/bazar-backend/pkg/llm"
)

const toolGetAvailableProducts = "getAvailableProducts"

var productToolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"category": {
			"type": "string",
			"description": "Optional category filter, e.g. Decoração or Electrónica"
		}
	}
}`)

func productTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.Function{
			Name:        toolGetAvailableProducts,
			Description: "Returns the products currently for sale, optionally filtered by category. Families of variants are collapsed into one representative card.",
			Parameters:  productToolParameters,
		},
	}
}

type productToolArgs struct {
	Category string `json:"category"`
}

// runProductTool resolves a model tool call against the live catalog and
// returns the JSON payload handed back to the model.
func (s *service) runProductTool(ctx context.Context, arguments string) (string, error) {
	var args productToolArgs
	if arguments != "" {
		// Malformed arguments degrade to the unfiltered list.
		_ = json.Unmarshal([]byte(arguments), &args)
	}
	products, err := s.catalog.DisplayList(ctx, args.Category)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
