package rest

import (
	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
	"github.com/davidleathers/contact-guardian/internal/service/insights"
	"github.com/davidleathers/contact-guardian/internal/service/relevance"
)

// Search limits
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// VerifyRequest asks for the classification of one identifier
type VerifyRequest struct {
	Kind  string `json:"kind" validate:"required,contactkind"`
	Value string `json:"value" validate:"required,notblank,max=512"`
}

// AnalyzeRequest asks for the risk assessment of a message
type AnalyzeRequest struct {
	Text string `json:"text" validate:"required,notblank,max=10000"`
}

// SearchParams are the query parameters of a service search
type SearchParams struct {
	Query string `json:"q" validate:"required,notblank,max=500"`
	Limit int    `json:"limit" validate:"gte=0,lte=50"`
}

// AssistantRequest asks the assistant about a service
type AssistantRequest struct {
	Query string `json:"query" validate:"required,notblank,max=500"`
}

// SearchResponse lists ranked service entries
type SearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []relevance.Scored `json:"results"`
}

// ConflictsResponse lists identifiers recorded as both safe and threat
type ConflictsResponse struct {
	CorpusVersion string              `json:"corpus_version"`
	Count         int                 `json:"count"`
	Conflicts     []insights.Conflict `json:"conflicts"`
}

// StatsResponse summarizes the active snapshot
type StatsResponse struct {
	insights.Stats
	Recent []contact.Record `json:"recently_verified"`
}

// SignatureReloadResponse reports a signature reload
type SignatureReloadResponse struct {
	Generation uint64 `json:"generation"`
}

// ReloadResponse reports a manual reload
type ReloadResponse struct {
	Changed         bool               `json:"changed"`
	PreviousVersion string             `json:"previous_version,omitempty"`
	CurrentVersion  string             `json:"current_version"`
	Report          *corpus.LoadReport `json:"report,omitempty"`
	Warning         string             `json:"warning,omitempty"`
}
