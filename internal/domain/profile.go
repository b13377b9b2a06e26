package domain

import "time"

// DocumentType enumerates the KYC documents a profile can carry.
type DocumentType string

const (
	DocID             DocumentType = "ID"
	DocProofOfAddress DocumentType = "PROOF_OF_ADDRESS"
	DocIncomeProof    DocumentType = "INCOME_PROOF"
	DocTaxReturn      DocumentType = "TAX_RETURN"
)

// RequiredDocuments lists every document type a fully verified profile needs.
var RequiredDocuments = []DocumentType{DocID, DocProofOfAddress, DocIncomeProof, DocTaxReturn}

// DocumentStatus is the verification state of a submitted document.
type DocumentStatus string

const (
	DocStatusValid    DocumentStatus = "valid"
	DocStatusPending  DocumentStatus = "pending"
	DocStatusRejected DocumentStatus = "rejected"
	DocStatusVerified DocumentStatus = "verified"
)

// Document is the metadata of one submitted KYC document. URL points at the
// stored file (a gs:// URI once uploaded through the vault).
type Document struct {
	Status     DocumentStatus `json:"status"`
	ExpiryDate time.Time      `json:"expiryDate,omitempty"`
	UploadDate time.Time      `json:"uploadDate,omitempty"`
	URL        string         `json:"url,omitempty"`
}

// Profile is the user's financial profile as kept in the document store.
type Profile struct {
	Name             string                     `json:"name,omitempty"`
	DateOfBirth      string                     `json:"dateOfBirth,omitempty"`
	Address          string                     `json:"address,omitempty"`
	Phone            string                     `json:"phone,omitempty"`
	Occupation       string                     `json:"occupation,omitempty"`
	MonthlyIncome    float64                    `json:"monthlyIncome,omitempty"`
	EmploymentStatus string                     `json:"employmentStatus,omitempty"`
	Documents        map[DocumentType]*Document `json:"documents,omitempty"`
}

// Document returns the document of the given type, or nil when absent.
func (p *Profile) Document(dt DocumentType) *Document {
	if p == nil || p.Documents == nil {
		return nil
	}
	return p.Documents[dt]
}
