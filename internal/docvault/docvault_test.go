package docvault

import (
	"testing"

	"github.com/jmcabrera/pesowise/internal/domain"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		dt       domain.DocumentType
		filename string
		want     string
	}{
		{"pdf", "user-1", domain.DocID, "passport.pdf", "user-1/ID.pdf"},
		{"uppercase ext folded", "user-1", domain.DocTaxReturn, "itr.PDF", "user-1/TAX_RETURN.pdf"},
		{"no extension", "user-1", domain.DocProofOfAddress, "bill", "user-1/PROOF_OF_ADDRESS"},
		{"path ignored", "u", domain.DocIncomeProof, "../../evil/payslip.jpg", "u/INCOME_PROOF.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectName(tt.userID, tt.dt, tt.filename); got != tt.want {
				t.Errorf("ObjectName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitURI(t *testing.T) {
	bucket, object, err := splitURI("gs://pesowise-docs/user-1/ID.pdf")
	if err != nil {
		t.Fatalf("splitURI: %v", err)
	}
	if bucket != "pesowise-docs" || object != "user-1/ID.pdf" {
		t.Errorf("splitURI = %q, %q", bucket, object)
	}

	for _, bad := range []string{"http://x/y", "gs://bucket-only", "gs://bucket/", ""} {
		if _, _, err := splitURI(bad); err == nil {
			t.Errorf("splitURI(%q) should fail", bad)
		}
	}
}
