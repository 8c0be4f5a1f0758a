package registry

import (
	"errors"
	"time"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrWalletTaken   = errors.New("wallet already registered")
)

type ServiceType string

const (
	ServiceScraper     ServiceType = "scraper"
	ServiceSummarizer  ServiceType = "summarizer"
	ServiceTranslation ServiceType = "translation"
	ServiceImageGen    ServiceType = "image_gen"
	ServicePDFLoader   ServiceType = "pdf_loader"
)

// KnownServiceTypes lists the closed set of service types agents may
// register for.
var KnownServiceTypes = []ServiceType{
	ServiceScraper,
	ServiceSummarizer,
	ServiceTranslation,
	ServiceImageGen,
	ServicePDFLoader,
}

// ValidServiceType reports whether s names a known service type.
func ValidServiceType(s string) bool {
	for _, t := range KnownServiceTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Agent is a registered service provider: a capability, a price per
// request, and a trust score maintained by the reputation updater.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Wallet        string      `json:"wallet"`
	ServiceType   ServiceType `json:"service_type"`
	Price         float64     `json:"price"`
	Reputation    float64     `json:"reputation"`
	Active        bool        `json:"active"`
	JobsCompleted int64       `json:"jobs_completed"`
	TotalEarned   float64     `json:"total_earned"`
	CreatedAt     time.Time   `json:"created_at"`
}
