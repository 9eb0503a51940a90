package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lancerkit/esign/internal/token"
	"github.com/lancerkit/esign/model"
)

// PgContractStore is a PostgreSQL-backed ContractStore using pgx/v5.
//
// Expected schema:
//
//	contracts (
//	    id TEXT PRIMARY KEY,
//	    contract_number TEXT NOT NULL,
//	    organization JSONB NOT NULL,
//	    signer JSONB NOT NULL,
//	    reviewer JSONB,
//	    terms JSONB NOT NULL,
//	    status TEXT NOT NULL,
//	    reviewer_token TEXT UNIQUE,
//	    reviewer_token_expires_at TIMESTAMPTZ,
//	    signing_token TEXT UNIQUE,
//	    signing_token_expires_at TIMESTAMPTZ,
//	    document_hash TEXT NOT NULL,
//	    signed_document_hash TEXT NOT NULL DEFAULT '',
//	    unsigned_pdf_path TEXT NOT NULL,
//	    signed_pdf_path TEXT NOT NULL DEFAULT '',
//	    signature_image_path TEXT NOT NULL DEFAULT '',
//	    sent_at TIMESTAMPTZ, reviewed_at TIMESTAMPTZ,
//	    viewed_at TIMESTAMPTZ, signed_at TIMESTAMPTZ,
//	    created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL
//	)
//
//	audit_events (
//	    seq BIGSERIAL,
//	    id TEXT PRIMARY KEY,
//	    contract_id TEXT NOT NULL REFERENCES contracts(id),
//	    event_type TEXT NOT NULL,
//	    actor TEXT NOT NULL,
//	    client_ip TEXT NOT NULL DEFAULT '',
//	    user_agent TEXT NOT NULL DEFAULT '',
//	    document_hash TEXT NOT NULL,
//	    metadata JSONB,
//	    created_at TIMESTAMPTZ NOT NULL
//	)
//
// audit_events has no UPDATE or DELETE path anywhere in this package.
type PgContractStore struct {
	pool *pgxpool.Pool
}

// NewPgContractStore creates a new PostgreSQL contract store.
func NewPgContractStore(pool *pgxpool.Pool) *PgContractStore {
	return &PgContractStore{pool: pool}
}

// HealthCheck pings the database.
func (s *PgContractStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const contractColumns = `id, contract_number, organization, signer, reviewer, terms, status,
       reviewer_token, reviewer_token_expires_at, signing_token, signing_token_expires_at,
       document_hash, signed_document_hash,
       unsigned_pdf_path, signed_pdf_path, signature_image_path,
       sent_at, reviewed_at, viewed_at, signed_at, created_at, updated_at`

// Create inserts a new contract row.
func (s *PgContractStore) Create(ctx context.Context, c model.Contract) error {
	if err := c.ValidateTokenState(); err != nil {
		return fmt.Errorf("contract state is inconsistent: %w", err)
	}
	orgJSON, signerJSON, reviewerJSON, termsJSON, err := marshalContractDocs(c)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        $8, $9, $10, $11,
		        $12, $13,
		        $14, $15, $16,
		        $17, $18, $19, $20, $21, $22)`,
		c.ID, c.ContractNumber, orgJSON, signerJSON, reviewerJSON, termsJSON, c.Status,
		c.ReviewerToken, c.ReviewerTokenExpiresAt, c.SigningToken, c.SigningTokenExpiresAt,
		c.DocumentHash, c.SignedDocumentHash,
		c.UnsignedPDFPath, c.SignedPDFPath, c.SignatureImagePath,
		c.SentAt, c.ReviewedAt, c.ViewedAt, c.SignedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// Get retrieves a contract by ID.
func (s *PgContractStore) Get(ctx context.Context, id string) (model.Contract, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = $1`,
		id,
	)
	c, err := scanContract(row)
	if err == pgx.ErrNoRows {
		return model.Contract{}, model.NewNotFoundError(fmt.Sprintf("contract %q not found", id))
	}
	if err != nil {
		return model.Contract{}, fmt.Errorf("query contract: %w", err)
	}
	return c, nil
}

// GetByToken resolves a bearer token. Live tokens match their column
// directly; for everything else the token's digest is looked up in the
// audit trail, so a consumed link still resolves to its contract.
func (s *PgContractStore) GetByToken(ctx context.Context, tokenValue string) (TokenLookup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE reviewer_token = $1 OR signing_token = $1`,
		tokenValue,
	)
	c, err := scanContract(row)
	if err == nil {
		role := model.RoleSigner
		if c.ReviewerToken != nil && token.Equal(*c.ReviewerToken, tokenValue) {
			role = model.RoleReviewer
		}
		return TokenLookup{Contract: c, Role: role}, nil
	}
	if err != pgx.ErrNoRows {
		return TokenLookup{}, fmt.Errorf("query contract by token: %w", err)
	}

	var contractID string
	var eventType model.AuditEventType
	err = s.pool.QueryRow(ctx, `
		SELECT contract_id, event_type
		FROM audit_events
		WHERE metadata->>'token_digest' = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		token.Digest(tokenValue),
	).Scan(&contractID, &eventType)
	if err == pgx.ErrNoRows {
		return TokenLookup{}, model.NewNotFoundError("unknown token")
	}
	if err != nil {
		return TokenLookup{}, fmt.Errorf("query consumed token: %w", err)
	}

	c, err = s.Get(ctx, contractID)
	if err != nil {
		return TokenLookup{}, err
	}
	return TokenLookup{Contract: c, Role: roleForEvent(eventType), Consumed: true}, nil
}

// Transition swaps the contract to next if its stored status is still in
// from, writing the audit events in the same transaction. effects runs
// after the swap succeeds and before commit, so side work like blob
// uploads happens at most once and never for a lost race.
func (s *PgContractStore) Transition(ctx context.Context, next model.Contract, from []model.ContractStatus,
	events []model.AuditEvent, effects func(context.Context) error) (model.Contract, error) {
	if err := next.ValidateTokenState(); err != nil {
		return model.Contract{}, fmt.Errorf("contract state is inconsistent: %w", err)
	}
	orgJSON, signerJSON, reviewerJSON, termsJSON, err := marshalContractDocs(next)
	if err != nil {
		return model.Contract{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Contract{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET
			organization = $1, signer = $2, reviewer = $3, terms = $4,
			status = $5,
			reviewer_token = $6, reviewer_token_expires_at = $7,
			signing_token = $8, signing_token_expires_at = $9,
			document_hash = $10, signed_document_hash = $11,
			unsigned_pdf_path = $12, signed_pdf_path = $13, signature_image_path = $14,
			sent_at = $15, reviewed_at = $16, viewed_at = $17, signed_at = $18,
			updated_at = $19
		WHERE id = $20 AND status = ANY($21)`,
		orgJSON, signerJSON, reviewerJSON, termsJSON,
		next.Status,
		next.ReviewerToken, next.ReviewerTokenExpiresAt,
		next.SigningToken, next.SigningTokenExpiresAt,
		next.DocumentHash, next.SignedDocumentHash,
		next.UnsignedPDFPath, next.SignedPDFPath, next.SignatureImagePath,
		next.SentAt, next.ReviewedAt, next.ViewedAt, next.SignedAt,
		next.UpdatedAt,
		next.ID, statusStrings(from),
	)
	if err != nil {
		return model.Contract{}, fmt.Errorf("update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := s.Get(ctx, next.ID)
		if getErr != nil {
			return model.Contract{}, getErr
		}
		return model.Contract{}, model.NewInvalidStateError(fmt.Sprintf(
			"contract is %s, cannot move to %s", current.Status, next.Status))
	}

	for _, ev := range events {
		var mdJSON []byte
		if ev.Metadata != nil {
			mdJSON, err = json.Marshal(ev.Metadata)
			if err != nil {
				return model.Contract{}, fmt.Errorf("marshal event metadata: %w", err)
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_events (
				id, contract_id, event_type, actor, client_ip, user_agent,
				document_hash, metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ev.ID, ev.ContractID, ev.Type, ev.Actor, ev.ClientIP, ev.UserAgent,
			ev.DocumentHash, mdJSON, ev.CreatedAt,
		)
		if err != nil {
			return model.Contract{}, fmt.Errorf("insert audit event: %w", err)
		}
	}

	if effects != nil {
		if err := effects(ctx); err != nil {
			return model.Contract{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Contract{}, fmt.Errorf("commit transition: %w", err)
	}
	return next, nil
}

// AuditTrail retrieves all events for a contract, oldest first.
func (s *PgContractStore) AuditTrail(ctx context.Context, contractID string) ([]model.AuditEvent, error) {
	if _, err := s.Get(ctx, contractID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, contract_id, event_type, actor, client_ip, user_agent,
		       document_hash, metadata, created_at
		FROM audit_events
		WHERE contract_id = $1
		ORDER BY created_at ASC, seq ASC`,
		contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var ev model.AuditEvent
		var mdJSON []byte
		if err := rows.Scan(
			&ev.ID, &ev.ContractID, &ev.Type, &ev.Actor, &ev.ClientIP, &ev.UserAgent,
			&ev.DocumentHash, &mdJSON, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if mdJSON != nil {
			_ = json.Unmarshal(mdJSON, &ev.Metadata)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func marshalContractDocs(c model.Contract) (org, signer, reviewer, terms []byte, err error) {
	if org, err = json.Marshal(c.Organization); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal organization: %w", err)
	}
	if signer, err = json.Marshal(c.Signer); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal signer: %w", err)
	}
	if c.Reviewer != nil {
		if reviewer, err = json.Marshal(c.Reviewer); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal reviewer: %w", err)
		}
	}
	if terms, err = json.Marshal(c.Terms); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal terms: %w", err)
	}
	return org, signer, reviewer, terms, nil
}

func scanContract(row pgx.Row) (model.Contract, error) {
	var c model.Contract
	var orgJSON, signerJSON, reviewerJSON, termsJSON []byte

	err := row.Scan(
		&c.ID, &c.ContractNumber, &orgJSON, &signerJSON, &reviewerJSON, &termsJSON, &c.Status,
		&c.ReviewerToken, &c.ReviewerTokenExpiresAt, &c.SigningToken, &c.SigningTokenExpiresAt,
		&c.DocumentHash, &c.SignedDocumentHash,
		&c.UnsignedPDFPath, &c.SignedPDFPath, &c.SignatureImagePath,
		&c.SentAt, &c.ReviewedAt, &c.ViewedAt, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return model.Contract{}, err
	}

	if err := json.Unmarshal(orgJSON, &c.Organization); err != nil {
		return model.Contract{}, fmt.Errorf("unmarshal organization: %w", err)
	}
	if err := json.Unmarshal(signerJSON, &c.Signer); err != nil {
		return model.Contract{}, fmt.Errorf("unmarshal signer: %w", err)
	}
	if reviewerJSON != nil {
		c.Reviewer = &model.Party{}
		if err := json.Unmarshal(reviewerJSON, c.Reviewer); err != nil {
			return model.Contract{}, fmt.Errorf("unmarshal reviewer: %w", err)
		}
	}
	if err := json.Unmarshal(termsJSON, &c.Terms); err != nil {
		return model.Contract{}, fmt.Errorf("unmarshal terms: %w", err)
	}
	return c, nil
}

func statusStrings(set []model.ContractStatus) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
