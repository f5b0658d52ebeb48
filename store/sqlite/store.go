// Package sqlite implements the autophage store on SQLite via the Grove
// ORM. Suitable for single-node deployments and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
	autostore "github.com/statusdothealth/autophage/store"
)

// compile-time interface check
var _ autostore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("autophage/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("autophage/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Balance Store ====================

func (s *Store) GetBalance(ctx context.Context, account string, category ledger.Category) (*ledger.AccountBalance, error) {
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("account = ?", account).
		Where("category = ?", uint8(category)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledger.ErrBalanceNotFound
		}
		return nil, err
	}
	return fromBalanceModel(m), nil
}

func (s *Store) ListBalances(ctx context.Context, account string) ([]*ledger.AccountBalance, error) {
	var models []balanceModel
	q := s.sdb.NewSelect(&models)
	if account != "" {
		q = q.Where("account = ?", account)
	}
	q = q.OrderExpr("account ASC, category ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*ledger.AccountBalance, len(models))
	for i := range models {
		result[i] = fromBalanceModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpsertBalances(ctx context.Context, balances ...*ledger.AccountBalance) error {
	if len(balances) == 0 {
		return nil
	}
	models := make([]balanceModel, len(balances))
	for i, b := range balances {
		models[i] = *toBalanceModel(b)
	}
	// Single multi-row statement so a transfer's debit and credit land
	// together.
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(account, category) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("last_update = EXCLUDED.last_update").
		Set("locked_until = EXCLUDED.locked_until").
		Set("lock_days = EXCLUDED.lock_days").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetCategory(ctx context.Context, category ledger.Category) (*ledger.CategoryConfig, error) {
	m := new(categoryModel)
	err := s.sdb.NewSelect(m).
		Where("category = ?", uint8(category)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledger.ErrCategoryNotFound
		}
		return nil, err
	}
	return fromCategoryModel(m), nil
}

func (s *Store) PutCategory(ctx context.Context, cfg *ledger.CategoryConfig) error {
	m := toCategoryModel(cfg)
	m.UpdatedAt = now()
	_, err := s.sdb.NewInsert(m).
		OnConflict("(category) DO UPDATE").
		Set("decay_rate = EXCLUDED.decay_rate").
		Set("tiers = EXCLUDED.tiers").
		Set("total_issued = EXCLUDED.total_issued").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]*ledger.CategoryConfig, error) {
	var models []categoryModel
	q := s.sdb.NewSelect(&models).OrderExpr("category ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*ledger.CategoryConfig, len(models))
	for i := range models {
		result[i] = fromCategoryModel(&models[i])
	}
	return result, nil
}

// ==================== Claim Store ====================

func (s *Store) InsertClaim(ctx context.Context, c *reservoir.Claim) error {
	m := toClaimModel(c)
	var claimID uint64
	err := s.sdb.NewRaw(`
		INSERT INTO autophage_claims
			(ref, claimant, amount, urgency, claim_type, verification_hash,
			 submitted_at, processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.Ref, m.Claimant, m.Amount, m.Urgency, m.ClaimType, m.VerificationHash,
		m.SubmittedAt, m.Processed, m.CreatedAt, m.UpdatedAt).Scan(ctx, &claimID)
	if err != nil {
		return err
	}
	c.ID = claimID
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID uint64) (*reservoir.Claim, error) {
	m := new(claimModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", claimID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reservoir.ErrClaimNotFound
		}
		return nil, err
	}
	return fromClaimModel(m)
}

func (s *Store) UpdateClaim(ctx context.Context, c *reservoir.Claim) error {
	m := toClaimModel(c)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return reservoir.ErrClaimNotFound
	}
	return nil
}

func (s *Store) ListPendingClaims(ctx context.Context) ([]*reservoir.Claim, error) {
	var models []claimModel
	q := s.sdb.NewSelect(&models).
		Where("processed = ?", false).
		OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*reservoir.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Reserve Store ====================

func (s *Store) GetReserve(ctx context.Context) (*reservoir.ReserveChamber, error) {
	m := new(reserveModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", reserveRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reservoir.ErrReserveNotFound
		}
		return nil, err
	}
	return fromReserveModel(m), nil
}

func (s *Store) PutReserve(ctx context.Context, r *reservoir.ReserveChamber) error {
	m := toReserveModel(r)
	m.UpdatedAt = now()
	_, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("total_deposits = EXCLUDED.total_deposits").
		Set("annual_revenue = EXCLUDED.annual_revenue").
		Set("daily_spend = EXCLUDED.daily_spend").
		Set("current_epoch_day = EXCLUDED.current_epoch_day").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Chamber Store ====================

func (s *Store) GetChamber(ctx context.Context, category ledger.Category) (*reservoir.TokenChamber, error) {
	m := new(chamberModel)
	err := s.sdb.NewSelect(m).
		Where("category = ?", uint8(category)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reservoir.ErrChamberNotFound
		}
		return nil, err
	}
	return fromChamberModel(m), nil
}

func (s *Store) PutChamber(ctx context.Context, ch *reservoir.TokenChamber) error {
	m := toChamberModel(ch)
	m.UpdatedAt = now()
	_, err := s.sdb.NewInsert(m).
		OnConflict("(category) DO UPDATE").
		Set("collected = EXCLUDED.collected").
		Set("distributed = EXCLUDED.distributed").
		Set("current = EXCLUDED.current").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListChambers(ctx context.Context) ([]*reservoir.TokenChamber, error) {
	var models []chamberModel
	q := s.sdb.NewSelect(&models).OrderExpr("category ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*reservoir.TokenChamber, len(models))
	for i := range models {
		result[i] = fromChamberModel(&models[i])
	}
	return result, nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEvent(ctx context.Context, ev *journal.Event) error {
	m := toEventModel(ev)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListEvents(ctx context.Context, opts journal.ListOpts) ([]*journal.Event, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Account != "" {
		q = q.Where("account = ?", opts.Account)
	}
	if !opts.Since.IsZero() {
		q = q.Where("at >= ?", opts.Since)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*journal.Event, len(models))
	for i := range models {
		ev, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = ev
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
