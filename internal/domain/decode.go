package domain

import (
	"strconv"
	"strings"
	"time"
)

// Decoding of untyped document-store payloads into domain records.
//
// The store hands back JSON-shaped maps; client apps have historically written
// loosely-typed blobs into it, so every field is coerced defensively here.
// Malformed numerics become 0 and malformed dates become the zero time; the
// decoders are total and never return an error for bad field values.

// CoerceAmount converts an untyped amount value to float64. Anything that is
// not a number (or a string holding one) counts as zero so that aggregates
// never see NaN.
func CoerceAmount(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		if isBadFloat(val) {
			return 0
		}
		return val
	case float32:
		return CoerceAmount(float64(val))
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || isBadFloat(f) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func isBadFloat(f float64) bool {
	return f != f || f > 1e308 || f < -1e308
}

func coerceString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// coerceDate parses the date layouts the store is known to contain. Bad or
// missing dates yield the zero time; callers decide whether that record still
// participates in date-grouped aggregates.
func coerceDate(m map[string]interface{}, key string) time.Time {
	raw := coerceString(m, key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// DecodeTransaction builds a Transaction from an untyped store record.
// A record with no explicit type is classified by the sign of its amount,
// matching the signed storage convention.
func DecodeTransaction(m map[string]interface{}) Transaction {
	if m == nil {
		return Transaction{}
	}

	tx := Transaction{
		ID:        coerceString(m, "id"),
		Name:      coerceString(m, "name"),
		Amount:    CoerceAmount(m["amount"]),
		Date:      coerceDate(m, "date"),
		Category:  coerceString(m, "category"),
		Channel:   coerceString(m, "channel"),
		AccountID: coerceString(m, "accountId"),
		Notes:     coerceString(m, "notes"),
	}

	switch strings.ToLower(coerceString(m, "type")) {
	case string(TypeIncome):
		tx.Type = TypeIncome
	case string(TypeExpense):
		tx.Type = TypeExpense
	default:
		if tx.Amount < 0 {
			tx.Type = TypeExpense
		} else {
			tx.Type = TypeIncome
		}
	}

	return tx
}

// DecodeBankAccount builds a BankAccount from an untyped store record.
func DecodeBankAccount(m map[string]interface{}) BankAccount {
	if m == nil {
		return BankAccount{}
	}

	acct := BankAccount{
		ID:          coerceString(m, "id"),
		Currency:    coerceString(m, "currency"),
		Balance:     CoerceAmount(m["balance"]),
		CardNumber:  coerceString(m, "cardNumber"),
		CardName:    coerceString(m, "cardName"),
		AccountName: coerceString(m, "accountName"),
		CreditLimit: CoerceAmount(m["creditLimit"]),
		CreatedAt:   coerceDate(m, "createdAt"),
	}

	switch raw := strings.ToLower(coerceString(m, "accountType")); raw {
	case string(AccountEwallet):
		acct.AccountType = AccountEwallet
	case "", string(AccountBank):
		acct.AccountType = AccountBank
	default:
		// Unknown types are kept verbatim; IsCredit matches on the raw
		// value, and the write path rejects them at validation.
		acct.AccountType = AccountType(raw)
	}

	return acct
}

// DecodeProfile builds a Profile from an untyped store record.
func DecodeProfile(m map[string]interface{}) *Profile {
	if m == nil {
		return nil
	}

	p := &Profile{
		Name:             coerceString(m, "name"),
		DateOfBirth:      coerceString(m, "dateOfBirth"),
		Address:          coerceString(m, "address"),
		Phone:            coerceString(m, "phone"),
		Occupation:       coerceString(m, "occupation"),
		MonthlyIncome:    CoerceAmount(m["monthlyIncome"]),
		EmploymentStatus: coerceString(m, "employmentStatus"),
	}

	docsAny, ok := m["documents"].(map[string]interface{})
	if !ok {
		return p
	}

	p.Documents = make(map[DocumentType]*Document, len(docsAny))
	for _, dt := range RequiredDocuments {
		docMap, ok := docsAny[string(dt)].(map[string]interface{})
		if !ok {
			continue
		}
		p.Documents[dt] = &Document{
			Status:     DocumentStatus(strings.ToLower(coerceString(docMap, "status"))),
			ExpiryDate: coerceDate(docMap, "expiryDate"),
			UploadDate: coerceDate(docMap, "uploadDate"),
			URL:        coerceString(docMap, "url"),
		}
	}

	return p
}
