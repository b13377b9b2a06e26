package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/advisor"
	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/compliance"
	"github.com/jmcabrera/pesowise/internal/docvault"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/flow"
	"github.com/jmcabrera/pesowise/internal/logger"
	"github.com/jmcabrera/pesowise/internal/metrics"
	"github.com/jmcabrera/pesowise/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "compliance":
		runCompliance(log)
	case "refresh":
		runRefresh(log)
	case "upload-doc":
		runUploadDoc(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PesoWise CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze     Run the metrics analysis over local JSON exports")
	fmt.Println("  compliance  Score a profile JSON file for KYC compliance")
	fmt.Println("  refresh     Run a full analysis for a user against BigQuery")
	fmt.Println("  upload-doc  Upload a KYC document to GCS")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// readObjects decodes a JSON array of loose objects from a file. Files come
// from browser exports, so fields may be missing or mistyped.
func readObjects(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readObjects: %w", err)
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("readObjects: decoding %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func readProfile(path string) (*domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readProfile: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("readProfile: decoding %s: %w", filepath.Base(path), err)
	}
	p := domain.DecodeProfile(raw)
	if p == nil {
		return nil, fmt.Errorf("readProfile: %s is not a profile object", filepath.Base(path))
	}
	return p, nil
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	txFile := fs.String("transactions", "", "Path to a JSON array of transactions")
	acctFile := fs.String("accounts", "", "Path to a JSON array of bank accounts")
	profileFile := fs.String("profile", "", "Optional path to a profile JSON for the advisory")
	outFile := fs.String("out", "", "Write the full snapshot JSON to this path instead of stdout")
	fs.Parse(os.Args[2:])

	if *txFile == "" {
		log.Fatal().Msg("Error: --transactions is required")
	}

	rawTxs, err := readObjects(*txFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}
	txs := make([]domain.Transaction, 0, len(rawTxs))
	for _, m := range rawTxs {
		txs = append(txs, domain.DecodeTransaction(m))
	}

	var accounts []domain.BankAccount
	if *acctFile != "" {
		rawAccts, err := readObjects(*acctFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read accounts")
		}
		for _, m := range rawAccts {
			accounts = append(accounts, domain.DecodeBankAccount(m))
		}
	}

	profile := &domain.Profile{}
	if *profileFile != "" {
		profile, err = readProfile(*profileFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read profile")
		}
	}

	log.Info().
		Int("transactions", len(txs)).
		Int("accounts", len(accounts)).
		Msg("Running analysis")

	m := metrics.New(txs, accounts, metrics.WithLogger(log)).AnalyzeAll()
	report := compliance.NewScorer(time.Time{}).Score(profile)
	advisory := advisor.Fallback(m, report)

	snap := flow.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Metrics:     m,
		Compliance:  report,
		Advisory:    advisory,
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode snapshot")
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, out, 0o644); err != nil {
			log.Fatal().Err(err).Msg("Failed to write snapshot")
		}
		fmt.Printf("Snapshot written to %s\n", *outFile)
	} else {
		fmt.Println(string(out))
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Monthly income:   %.2f\n", m.Summary.MonthlyIncome)
	fmt.Printf("Monthly expenses: %.2f\n", m.Summary.MonthlyExpenses)
	fmt.Printf("Net cash flow:    %.2f\n", m.Summary.NetCashFlow)
	fmt.Printf("Savings rate:     %.2f\n", m.Summary.SavingsRate)
	fmt.Printf("Risk score:       %.0f (raw %.1f)\n", m.RiskScore.Overall, m.RiskScore.Raw)
	fmt.Printf("Compliance:       %s (%.0f)\n", report.Status, report.Overall)
	fmt.Printf("Health score:     %d\n", advisory.HealthScore)
}

func runCompliance(log zerolog.Logger) {
	fs := flag.NewFlagSet("compliance", flag.ExitOnError)
	profileFile := fs.String("profile", "", "Path to a profile JSON file")
	fs.Parse(os.Args[2:])

	if *profileFile == "" {
		log.Fatal().Msg("Error: --profile is required")
	}

	profile, err := readProfile(*profileFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read profile")
	}

	report := compliance.NewScorer(time.Time{}).Score(profile)

	fmt.Println("\n=== Compliance Report ===")
	fmt.Printf("KYC score:        %.1f\n", report.KYCScore)
	fmt.Printf("Document score:   %.1f\n", report.DocumentValidityScore)
	fmt.Printf("Overall:          %.1f\n", report.Overall)
	fmt.Printf("Status:           %s\n", report.Status)

	for _, dt := range domain.RequiredDocuments {
		doc, ok := profile.Documents[dt]
		if !ok {
			fmt.Printf("  %-17s missing\n", dt)
			continue
		}
		fmt.Printf("  %-17s %s\n", dt, doc.Status)
	}
}

func runRefresh(log zerolog.Logger) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to analyze")
	projectID := fs.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or set BQ_PROJECT)")
	datasetID := fs.String("dataset", envOr("BQ_DATASET", "pesowise"), "BigQuery dataset (or set BQ_DATASET)")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: --project or BQ_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := store.NewBigQueryStore(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer st.Close()

	runner := flow.NewRunner(st, advisor.New(advisor.NewGeminiModel(), log), cache.NewMemory(), log)

	log.Info().Str("user_id", *userID).Msg("Starting analysis run")

	snap, err := runner.Run(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis run failed")
	}

	fmt.Printf("Run %s completed.\n", snap.RunID)
	fmt.Printf("Risk score:   %.0f\n", snap.Metrics.RiskScore.Overall)
	fmt.Printf("Compliance:   %s\n", snap.Compliance.Status)
	fmt.Printf("Health score: %d (%s)\n", snap.Advisory.HealthScore, snap.Advisory.Source)
}

func runUploadDoc(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload-doc", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET)")
	userID := fs.String("user", "", "User ID the document belongs to")
	docType := fs.String("type", "", "Document type (ID, PROOF_OF_ADDRESS, INCOME_PROOF, TAX_RETURN)")
	filePath := fs.String("file", "", "Path to the local document file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *userID == "" || *docType == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload-doc -bucket NAME -user ID -type TYPE -file PATH")
	}

	dt := domain.DocumentType(strings.ToUpper(*docType))
	known := false
	for _, req := range domain.RequiredDocuments {
		if dt == req {
			known = true
			break
		}
	}
	if !known {
		log.Fatal().Str("type", *docType).Msg("Unknown document type")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open file")
	}
	defer f.Close()

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("user_id", *userID).
		Str("type", string(dt)).
		Msg("Uploading document to GCS")

	vault := docvault.NewGCSVault(*bucketName)
	uri, err := vault.Upload(ctx, *userID, dt, filepath.Base(*filePath), f)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
