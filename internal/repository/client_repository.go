package repository

// client_repository.go holds persistence for the per-tenant company records.
// Every query is scoped by user_id: a user only ever sees and mutates their
// own clients.  The (user_id, cnpj) unique key means the same CNPJ may be
// registered by different users but not twice by the same one.

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Client is a company record owned by a user.  Optional fields are pointers
// so they marshal to JSON null when absent, matching the API contract.
type Client struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"-"`
	RazaoSocial      string    `json:"razao_social"`
	CNPJ             string    `json:"cnpj"`
	Email            *string   `json:"email"`
	Telefone         *string   `json:"telefone"`
	RegimeTributario string    `json:"regime_tributario"`
	AnexoSimples     *string   `json:"anexo_simples"`
	Cidade           *string   `json:"cidade"`
	Estado           *string   `json:"estado"`
	FaturamentoAnual *float64  `json:"faturamento_anual"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ErrClientNotFound is returned when a client does not exist or belongs to
// another user; callers cannot tell the two apart.
var ErrClientNotFound = errors.New("client not found")

// ErrCNPJExists is returned when the owner already registered this CNPJ.
var ErrCNPJExists = errors.New("cnpj already registered for this user")

// ClientRepo encapsulates all database queries related to clients.
type ClientRepo struct {
	db *sql.DB
}

// NewClientRepo constructs a ClientRepo with the provided DB handle so the
// database can be injected in tests and at startup.
func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

const clientCols = "id, user_id, razao_social, cnpj, email, telefone, regime_tributario, anexo_simples, cidade, estado, faturamento_anual, created_at, updated_at"

// Create inserts a new client for its owner.  On success the ID and the
// database-generated timestamps are populated on the passed struct.
func (r *ClientRepo) Create(ctx context.Context, c *Client) error {
	const q = `INSERT INTO clients
	    (user_id, razao_social, cnpj, email, telefone, regime_tributario, anexo_simples, cidade, estado, faturamento_anual)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.UserID, c.RazaoSocial, c.CNPJ, c.Email, c.Telefone,
		c.RegimeTributario, c.AnexoSimples, c.Cidade, c.Estado, c.FaturamentoAnual)
	if err != nil {
		if isDuplicate(err) {
			return ErrCNPJExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id

	// Follow-up SELECT so callers receive the default timestamp fields.
	const qSel = "SELECT created_at, updated_at FROM clients WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSel, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByIDAndOwner fetches a client by id but only if it belongs to the given
// owner.  ErrClientNotFound covers both a missing row and someone else's row.
func (r *ClientRepo) GetByIDAndOwner(ctx context.Context, id, userID int64) (*Client, error) {
	q := "SELECT " + clientCols + " FROM clients WHERE id = ? AND user_id = ?"
	var c Client
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&c.ID, &c.UserID, &c.RazaoSocial, &c.CNPJ, &c.Email, &c.Telefone,
		&c.RegimeTributario, &c.AnexoSimples, &c.Cidade, &c.Estado,
		&c.FaturamentoAnual, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByOwner returns all clients of a user, newest first.
func (r *ClientRepo) ListByOwner(ctx context.Context, userID int64) ([]*Client, error) {
	q := "SELECT " + clientCols + " FROM clients WHERE user_id = ? ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Client
	for rows.Next() {
		c := new(Client)
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.RazaoSocial, &c.CNPJ, &c.Email, &c.Telefone,
			&c.RegimeTributario, &c.AnexoSimples, &c.Cidade, &c.Estado,
			&c.FaturamentoAnual, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the editable fields of a client owned by userID.
// ErrClientNotFound is returned when no row matched.
func (r *ClientRepo) Update(ctx context.Context, c *Client) error {
	const q = `UPDATE clients SET
	    razao_social = ?, cnpj = ?, email = ?, telefone = ?, regime_tributario = ?,
	    anexo_simples = ?, cidade = ?, estado = ?, faturamento_anual = ?,
	    updated_at = CURRENT_TIMESTAMP
	    WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		c.RazaoSocial, c.CNPJ, c.Email, c.Telefone, c.RegimeTributario,
		c.AnexoSimples, c.Cidade, c.Estado, c.FaturamentoAnual,
		c.ID, c.UserID)
	if err != nil {
		if isDuplicate(err) {
			return ErrCNPJExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL also reports zero affected rows for a no-change update, so
		// confirm the row really is absent before reporting not found.
		if _, err := r.GetByIDAndOwner(ctx, c.ID, c.UserID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByIDAndOwner removes a client if it belongs to the given owner.
func (r *ClientRepo) DeleteByIDAndOwner(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClientNotFound
	}
	return nil
}

// CountByOwner returns how many clients a user has registered.
func (r *ClientRepo) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clients WHERE user_id = ?", userID).Scan(&n)
	return n, err
}
