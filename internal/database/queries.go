package database

// Migration bookkeeping
const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	listMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	recordMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Credential queries
const (
	GetCredentialSQL = `
		SELECT token FROM credentials WHERE profile = $1`

	UpsertCredentialSQL = `
		INSERT INTO credentials (profile, token)
		VALUES ($1, $2)
		ON CONFLICT (profile) DO UPDATE SET
			token = EXCLUDED.token,
			updated_at = NOW()`

	DeleteCredentialSQL = `
		DELETE FROM credentials WHERE profile = $1`
)

// Payment attempt queries
const (
	InsertAttemptSQL = `
		INSERT INTO payment_attempts (id, kind, restaurant_id, order_id, table_number, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`

	UpdateAttemptAuthorizedSQL = `
		UPDATE payment_attempts SET status = 'authorized', charge_ref = $2, updated_at = NOW()
		WHERE id = $1`

	UpdateAttemptStatusSQL = `
		UPDATE payment_attempts SET status = $2, reason = $3, updated_at = NOW()
		WHERE id = $1`

	ResolveAttemptSQL = `
		UPDATE payment_attempts SET status = $2, reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	GetAttemptsByStatusSQL = `
		SELECT id::text, kind, restaurant_id, order_id, table_number, amount, charge_ref, status, reason, created_at, updated_at
		FROM payment_attempts
		WHERE status = $1
		ORDER BY created_at ASC`
)
