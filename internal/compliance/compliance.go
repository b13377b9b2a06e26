// Package compliance grades a user's KYC completion and document validity.
// Like the metrics analyzer it is pure: scores are derived from the profile
// alone and a missing profile simply scores zero.
package compliance

import (
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// Status buckets for the overall compliance score.
type Status string

const (
	StatusCompliant    Status = "COMPLIANT"
	StatusPartial      Status = "PARTIAL"
	StatusNonCompliant Status = "NON_COMPLIANT"
)

const (
	compliantThreshold = 0.8
	partialThreshold   = 0.6

	// expiryWarningWindow halves a document's validity score when its
	// expiry falls within this horizon.
	expiryWarningWindow = 30 * 24 * time.Hour
)

// requiredProfileFields is how many profile fields the KYC score counts.
const requiredProfileFields = 7

// documentWeights skew the validity score toward the primary ID.
var documentWeights = map[domain.DocumentType]float64{
	domain.DocID:             0.4,
	domain.DocProofOfAddress: 0.3,
	domain.DocIncomeProof:    0.2,
	domain.DocTaxReturn:      0.1,
}

// Report is the combined compliance assessment.
type Report struct {
	KYCScore              float64 `json:"kycScore"`
	DocumentValidityScore float64 `json:"documentValidityScore"`
	Overall               float64 `json:"overall"`
	Status                Status  `json:"status"`
}

// Scorer grades profiles against a reference time (documents expire).
type Scorer struct {
	now time.Time
}

// NewScorer returns a Scorer pinned to the given reference time. A zero time
// means "now".
func NewScorer(now time.Time) *Scorer {
	if now.IsZero() {
		now = time.Now()
	}
	return &Scorer{now: now.UTC()}
}

// Score produces the full compliance report for a profile.
func (s *Scorer) Score(p *domain.Profile) Report {
	kyc := s.KYCScore(p)
	validity := s.DocumentValidityScore(p)
	overall := 0.7*kyc + 0.3*validity

	status := StatusNonCompliant
	switch {
	case overall >= compliantThreshold:
		status = StatusCompliant
	case overall >= partialThreshold:
		status = StatusPartial
	}

	return Report{
		KYCScore:              kyc,
		DocumentValidityScore: validity,
		Overall:               overall,
		Status:                status,
	}
}

// KYCScore weighs profile completeness (7 required fields) and document
// submission (4 required documents) equally. Returns a value in [0,1].
func (s *Scorer) KYCScore(p *domain.Profile) float64 {
	if p == nil {
		return 0
	}

	fields := 0
	if p.Name != "" {
		fields++
	}
	if p.DateOfBirth != "" {
		fields++
	}
	if p.Address != "" {
		fields++
	}
	if p.Phone != "" {
		fields++
	}
	if p.Occupation != "" {
		fields++
	}
	if p.MonthlyIncome > 0 {
		fields++
	}
	if p.EmploymentStatus != "" {
		fields++
	}
	fieldScore := float64(fields) / requiredProfileFields

	var docScore float64
	for _, dt := range domain.RequiredDocuments {
		doc := p.Document(dt)
		switch {
		case doc == nil:
			// absent: 0
		case doc.Status == domain.DocStatusValid:
			docScore += 1.0
		default:
			docScore += 0.5
		}
	}
	docScore /= float64(len(domain.RequiredDocuments))

	return 0.5*fieldScore + 0.5*docScore
}

// DocumentValidityScore is the weighted average of per-document scores.
// Missing documents contribute 0 but their weight still counts in the
// denominator; a profile with no documents at all scores 0.
func (s *Scorer) DocumentValidityScore(p *domain.Profile) float64 {
	if p == nil || len(p.Documents) == 0 {
		return 0
	}

	var weighted, totalWeight float64
	for dt, weight := range documentWeights {
		totalWeight += weight
		doc := p.Document(dt)
		if doc == nil {
			continue
		}
		weighted += weight * s.documentScore(doc)
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func (s *Scorer) documentScore(doc *domain.Document) float64 {
	var score float64
	switch doc.Status {
	case domain.DocStatusValid, domain.DocStatusVerified:
		score = 1.0
	case domain.DocStatusPending:
		score = 0.5
	default: // rejected or unknown
		score = 0
	}

	if !doc.ExpiryDate.IsZero() {
		if doc.ExpiryDate.Before(s.now) {
			return 0
		}
		if doc.ExpiryDate.Sub(s.now) <= expiryWarningWindow {
			score /= 2
		}
	}
	return score
}
