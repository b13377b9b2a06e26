package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/logger"
)

const (
	transactionsTable   = "transactions"
	accountsTable       = "bank_accounts"
	profilesTable       = "profiles"
	analysisRunsTable   = "analysis_runs"
	advisorOutputsTable = "advisor_outputs"
)

// BigQueryStore implements Store on BigQuery with a shared client. It holds
// one client for its lifetime to avoid creating a new connection per call.
type BigQueryStore struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryStore creates a store bound to the given project and dataset.
func NewBigQueryStore(ctx context.Context, projectID, datasetID string) (*BigQueryStore, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryStore: creating client: %w", err)
	}
	return &BigQueryStore{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close releases the underlying BigQuery client.
func (s *BigQueryStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *BigQueryStore) table(name string) string {
	return fmt.Sprintf("%s.%s", s.datasetID, name)
}

// runDML executes a parameterized DML statement and waits for the job.
func (s *BigQueryStore) runDML(ctx context.Context, opName, query string, params []bigquery.QueryParameter) error {
	q := s.client.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", opName, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", opName, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", opName, err)
	}
	return nil
}

// GetUserTransactions returns the user's full history ordered by date.
func (s *BigQueryStore) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			account_id,
			transaction_date,
			txn_ts,
			tx_type,
			amount,
			name,
			category,
			channel,
			notes,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY txn_ts, created_ts
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUserTransactions: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetUserTransactions: iter next: %w", err)
		}
		txs = append(txs, rowToTransaction(&r))
	}
	return txs, nil
}

// GetTransaction fetches a single transaction by ID.
func (s *BigQueryStore) GetTransaction(ctx context.Context, userID, transactionID string) (domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			account_id,
			transaction_date,
			txn_ts,
			tx_type,
			amount,
			name,
			category,
			channel,
			notes,
			created_ts
		FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
		LIMIT 1
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var r TransactionRow
	if err := it.Next(&r); err == iterator.Done {
		return domain.Transaction{}, ErrNotFound
	} else if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return rowToTransaction(&r), nil
}

// StoreTransaction inserts one transaction row.
func (s *BigQueryStore) StoreTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	row := transactionToRow(userID, tx)

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("StoreTransaction: inserting row: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction row.
func (s *BigQueryStore) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return s.runDML(ctx, "DeleteTransaction", fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, s.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	})
}

// GetUserBankAccounts returns all accounts for the user.
func (s *BigQueryStore) GetUserBankAccounts(ctx context.Context, userID string) ([]domain.BankAccount, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			user_id,
			account_type,
			currency,
			balance,
			credit_limit,
			account_name,
			card_name,
			card_number,
			created_ts,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUserBankAccounts: query read: %w", err)
	}

	var accts []domain.BankAccount
	for {
		var r AccountRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetUserBankAccounts: iter next: %w", err)
		}
		accts = append(accts, rowToAccount(&r))
	}
	return accts, nil
}

// StoreBankAccount inserts one account row.
func (s *BigQueryStore) StoreBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error {
	row := accountToRow(userID, acct)
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(accountsTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("StoreBankAccount: inserting row: %w", err)
	}
	return nil
}

// UpdateBankAccount rewrites the mutable columns of an account.
func (s *BigQueryStore) UpdateBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error {
	return s.runDML(ctx, "UpdateBankAccount", fmt.Sprintf(`
		UPDATE %s
		SET balance = @balance,
		    credit_limit = @credit_limit,
		    account_name = @account_name,
		    card_name = @card_name,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id AND account_id = @account_id
	`, s.table(accountsTable)), []bigquery.QueryParameter{
		{Name: "balance", Value: acct.Balance},
		{Name: "credit_limit", Value: acct.CreditLimit},
		{Name: "account_name", Value: acct.AccountName},
		{Name: "card_name", Value: acct.CardName},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "user_id", Value: userID},
		{Name: "account_id", Value: acct.ID},
	})
}

// GetUserProfile fetches the user's profile. A user with no profile row yet
// gets an empty profile, not an error.
func (s *BigQueryStore) GetUserProfile(ctx context.Context, userID string) (domain.Profile, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			user_id,
			name,
			date_of_birth,
			address,
			phone,
			occupation,
			monthly_income,
			employment_status,
			documents,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		LIMIT 1
	`, s.table(profilesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("GetUserProfile: query read: %w", err)
	}

	var r ProfileRow
	if err := it.Next(&r); err == iterator.Done {
		return domain.Profile{}, nil
	} else if err != nil {
		return domain.Profile{}, fmt.Errorf("GetUserProfile: iter next: %w", err)
	}
	return rowToProfile(&r), nil
}

// SaveUserProfile replaces the user's profile row.
func (s *BigQueryStore) SaveUserProfile(ctx context.Context, userID string, p domain.Profile) error {
	row, err := profileToRow(userID, p)
	if err != nil {
		return fmt.Errorf("SaveUserProfile: encoding documents: %w", err)
	}

	if err := s.runDML(ctx, "SaveUserProfile", fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = @user_id
	`, s.table(profilesTable)), []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}); err != nil {
		return err
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(profilesTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("SaveUserProfile: inserting row: %w", err)
	}
	return nil
}

// StartAnalysisRun inserts a RUNNING analysis run and returns its ID.
func (s *BigQueryStore) StartAnalysisRun(ctx context.Context, userID string) (string, error) {
	runID := uuid.NewString()

	err := s.runDML(ctx, "StartAnalysisRun", fmt.Sprintf(`
		INSERT %s (
			run_id,
			user_id,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@user_id,
			@started_ts,
			@status
		)
	`, s.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "user_id", Value: userID},
		{Name: "started_ts", Value: time.Now().UTC()},
		{Name: "status", Value: "RUNNING"},
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// MarkAnalysisRunFailed sets status=FAILED with the error message. Failures
// here are logged rather than returned; the caller is already on an error
// path and must not lose the original error.
func (s *BigQueryStore) MarkAnalysisRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	err := s.runDML(ctx, "MarkAnalysisRunFailed", fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, s.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now().UTC()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkAnalysisRunFailed: recording failure")
	}
}

// MarkAnalysisRunSucceeded sets status=SUCCESS and clears the error message.
func (s *BigQueryStore) MarkAnalysisRunSucceeded(ctx context.Context, runID string) error {
	return s.runDML(ctx, "MarkAnalysisRunSucceeded", fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE run_id = @run_id
	`, s.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now().UTC()},
		{Name: "run_id", Value: runID},
	})
}

// InsertAdvisorOutput stores one advisory for audit.
func (s *BigQueryStore) InsertAdvisorOutput(ctx context.Context, row *AdvisorOutputRow) error {
	if row.OutputID == "" {
		row.OutputID = uuid.NewString()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(advisorOutputsTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertAdvisorOutput: inserting row: %w", err)
	}
	return nil
}
