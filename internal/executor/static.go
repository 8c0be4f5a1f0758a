package executor

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/agentswarm/agentpay/internal/registry"
)

// Static produces canned outputs for demo mode and tests. Outputs are
// deterministic in the input so the chaining contract is observable.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Run(ctx context.Context, serviceType registry.ServiceType, input string) (*Result, error) {
	var output string
	switch serviceType {
	case registry.ServiceSummarizer:
		output = "summary: " + truncate(input, 120)
	case registry.ServiceTranslation:
		output = "translated: " + truncate(input, 200)
	case registry.ServiceScraper:
		output = "scraped content from " + truncate(input, 120)
	case registry.ServiceImageGen:
		output = "IMAGE_URL_STUB: " + truncate(input, 50)
	case registry.ServicePDFLoader:
		output = "extracted text of " + truncate(input, 120)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, serviceType)
	}
	return &Result{Output: output}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
