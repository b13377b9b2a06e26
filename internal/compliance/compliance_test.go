package compliance

import (
	"math"
	"testing"
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
)

var testNow = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func fullProfile() *domain.Profile {
	docs := make(map[domain.DocumentType]*domain.Document)
	for _, dt := range domain.RequiredDocuments {
		docs[dt] = &domain.Document{Status: domain.DocStatusValid}
	}
	return &domain.Profile{
		Name:             "Juan dela Cruz",
		DateOfBirth:      "1990-04-12",
		Address:          "Quezon City",
		Phone:            "+63-917-000-0000",
		Occupation:       "Engineer",
		MonthlyIncome:    45000,
		EmploymentStatus: "employed",
		Documents:        docs,
	}
}

func TestKYCScore_Bounds(t *testing.T) {
	s := NewScorer(testNow)

	if got := s.KYCScore(&domain.Profile{}); got != 0 {
		t.Errorf("empty profile KYC = %v, want exactly 0", got)
	}
	if got := s.KYCScore(nil); got != 0 {
		t.Errorf("nil profile KYC = %v, want 0", got)
	}
	if got := s.KYCScore(fullProfile()); got != 1 {
		t.Errorf("complete profile KYC = %v, want exactly 1", got)
	}
}

func TestKYCScore_PartialDocuments(t *testing.T) {
	p := fullProfile()
	p.Documents = map[domain.DocumentType]*domain.Document{
		domain.DocID:        {Status: domain.DocStatusValid},   // 1.0
		domain.DocTaxReturn: {Status: domain.DocStatusPending}, // present, not valid: 0.5
	}

	// Fields full (0.5) + documents (1.0+0.5)/4 * 0.5.
	approx(t, "KYCScore", NewScorer(testNow).KYCScore(p), 0.5+0.5*1.5/4)
}

func TestDocumentValidityScore_NoDocuments(t *testing.T) {
	s := NewScorer(testNow)
	if got := s.DocumentValidityScore(&domain.Profile{}); got != 0 {
		t.Errorf("score = %v, want 0 with no documents at all", got)
	}
}

func TestDocumentValidityScore_Weighted(t *testing.T) {
	p := &domain.Profile{Documents: map[domain.DocumentType]*domain.Document{
		domain.DocID:             {Status: domain.DocStatusVerified}, // 1.0 * 0.4
		domain.DocProofOfAddress: {Status: domain.DocStatusPending},  // 0.5 * 0.3
		domain.DocIncomeProof:    {Status: domain.DocStatusRejected}, // 0 * 0.2
		// TAX_RETURN missing: 0, weight still in denominator.
	}}

	approx(t, "DocumentValidityScore", NewScorer(testNow).DocumentValidityScore(p), 0.4+0.15)
}

func TestDocumentValidityScore_Expiry(t *testing.T) {
	s := NewScorer(testNow)

	expired := &domain.Profile{Documents: map[domain.DocumentType]*domain.Document{
		domain.DocID: {Status: domain.DocStatusValid, ExpiryDate: testNow.AddDate(0, 0, -1)},
	}}
	approx(t, "expired", s.DocumentValidityScore(expired), 0)

	expiring := &domain.Profile{Documents: map[domain.DocumentType]*domain.Document{
		domain.DocID: {Status: domain.DocStatusValid, ExpiryDate: testNow.AddDate(0, 0, 10)},
	}}
	// Halved: 1.0/2 * 0.4.
	approx(t, "expiring soon", s.DocumentValidityScore(expiring), 0.2)

	healthy := &domain.Profile{Documents: map[domain.DocumentType]*domain.Document{
		domain.DocID: {Status: domain.DocStatusValid, ExpiryDate: testNow.AddDate(1, 0, 0)},
	}}
	approx(t, "far expiry", s.DocumentValidityScore(healthy), 0.4)
}

func TestScore_StatusBuckets(t *testing.T) {
	s := NewScorer(testNow)

	full := s.Score(fullProfile())
	if full.Status != StatusCompliant {
		t.Errorf("Status = %q, want COMPLIANT at %v", full.Status, full.Overall)
	}
	approx(t, "full overall", full.Overall, 1)

	empty := s.Score(&domain.Profile{})
	if empty.Status != StatusNonCompliant {
		t.Errorf("Status = %q, want NON_COMPLIANT", empty.Status)
	}

	// Complete fields, all four documents pending: KYC = 0.5 + 0.5*0.5,
	// validity = 0.5, overall = 0.7*0.75 + 0.3*0.5 = 0.675.
	partial := fullProfile()
	for _, doc := range partial.Documents {
		doc.Status = domain.DocStatusPending
	}
	got := s.Score(partial)
	approx(t, "partial overall", got.Overall, 0.675)
	if got.Status != StatusPartial {
		t.Errorf("Status = %q, want PARTIAL", got.Status)
	}
}
