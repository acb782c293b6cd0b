package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"promotions-service/internal/models"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const promotionColumns = `id, title, description, promo_code, promo_type,
	promo_value, start_date, created_date, duration, active`

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn   *sql.DB
	driver string
}

// NewDB opens a connection with the given driver and initializes the schema.
// An empty driver selects SQLite, where dsn is a file path.
func NewDB(driver, dsn string) (*DB, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=1&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// initSchema creates the promotions table if it doesn't exist.
func (db *DB) initSchema() error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	durationType := "INTEGER"
	if db.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		durationType = "BIGINT"
	}

	typeNames := models.PromotionTypeNames()
	for i, name := range typeNames {
		typeNames[i] = "'" + name + "'"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS promotions (
			` + idColumn + `,
			title TEXT NOT NULL CHECK (title <> ''),
			description TEXT NOT NULL DEFAULT '',
			promo_code TEXT NOT NULL,
			promo_type TEXT NOT NULL CHECK (promo_type IN (` + strings.Join(typeNames, ", ") + `)),
			promo_value TEXT NOT NULL,
			start_date TEXT NOT NULL,
			created_date TEXT NOT NULL,
			duration ` + durationType + ` NOT NULL CHECK (duration >= 0),
			active BOOLEAN NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_promotions_promo_code ON promotions(promo_code)`,
		`CREATE INDEX IF NOT EXISTS idx_promotions_active ON promotions(active)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return errors.Wrap(err, "failed to execute schema query")
		}
	}

	return nil
}

// CreatePromotion inserts p and sets its ID from the store. On failure the
// transaction is rolled back and p.ID is left untouched.
func (db *DB) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `INSERT INTO promotions (
		title, description, promo_code, promo_type, promo_value,
		start_date, created_date, duration, active
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

	var id int64
	if err := tx.QueryRowContext(ctx, db.rebind(query), writeArgs(p)...).Scan(&id); err != nil {
		return translateWriteError(err, "failed to insert promotion")
	}

	if err := tx.Commit(); err != nil {
		return translateWriteError(err, "failed to commit transaction")
	}

	p.ID = id
	return nil
}

// UpdatePromotion writes p over the row with the same ID. A promotion that was
// never created is rejected before the store is touched.
func (db *DB) UpdatePromotion(ctx context.Context, p *models.Promotion) error {
	if p.ID == 0 {
		return models.NoIDError()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `UPDATE promotions SET
		title = ?,
		description = ?,
		promo_code = ?,
		promo_type = ?,
		promo_value = ?,
		start_date = ?,
		created_date = ?,
		duration = ?,
		active = ?
	WHERE id = ?`

	args := append(writeArgs(p), p.ID)
	if _, err := tx.ExecContext(ctx, db.rebind(query), args...); err != nil {
		return translateWriteError(err, "failed to update promotion")
	}

	if err := tx.Commit(); err != nil {
		return translateWriteError(err, "failed to commit transaction")
	}

	return nil
}

// DeletePromotion removes the row with the given ID. Deleting a missing row is a no-op.
func (db *DB) DeletePromotion(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM promotions WHERE id = ?`), id); err != nil {
		return errors.Wrapf(err, "failed to delete promotion %d", id)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// AllPromotions returns every stored promotion.
func (db *DB) AllPromotions(ctx context.Context) ([]models.Promotion, error) {
	return db.queryPromotions(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY id`)
}

// FindPromotion looks up a promotion by ID. It returns nil, nil when no row has that ID.
func (db *DB) FindPromotion(ctx context.Context, id int64) (*models.Promotion, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind(`SELECT `+promotionColumns+` FROM promotions WHERE id = ?`), id)

	p, err := scanPromotion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find promotion %d", id)
	}

	return &p, nil
}

// FindPromotionsByFields returns promotions whose attributes equal every
// given value. Values are text and are coerced to each attribute's type; an
// unknown attribute name fails the whole call before the store is queried.
func (db *DB) FindPromotionsByFields(ctx context.Context, params map[string]string) ([]models.Promotion, error) {
	filters, err := models.ParseFilters(params)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions`
	args := make([]interface{}, 0, len(filters))
	if len(filters) > 0 {
		conds := make([]string, 0, len(filters))
		for _, f := range filters {
			conds = append(conds, f.Column+" = ?")
			args = append(args, f.Value)
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	return db.queryPromotions(ctx, query, args...)
}

func (db *DB) queryPromotions(ctx context.Context, query string, args ...interface{}) ([]models.Promotion, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query promotions")
	}
	defer rows.Close()

	promotions := []models.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan promotion")
		}
		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating promotions")
	}

	return promotions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPromotion(row rowScanner) (models.Promotion, error) {
	var (
		p                      models.Promotion
		value                  decimal.Decimal
		startDate, createdDate string
		durationSeconds        int64
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.PromoCode,
		&p.PromoType,
		&value,
		&startDate,
		&createdDate,
		&durationSeconds,
		&p.Active,
	)
	if err != nil {
		return models.Promotion{}, err
	}

	p.PromoValue = value
	p.Duration = time.Duration(durationSeconds) * time.Second

	if p.StartDate, err = models.ParseDate(startDate); err != nil {
		return models.Promotion{}, errors.Wrap(err, "failed to parse start_date")
	}
	if p.CreatedDate, err = models.ParseDate(createdDate); err != nil {
		return models.Promotion{}, errors.Wrap(err, "failed to parse created_date")
	}

	return p, nil
}

// writeArgs lists the column values of p in insert/update order. promo_type is
// passed as text so an invalid member is rejected by the store's CHECK.
func writeArgs(p *models.Promotion) []interface{} {
	return []interface{}{
		p.Title,
		p.Description,
		p.PromoCode,
		p.PromoType.String(),
		p.PromoValue.String(),
		models.FormatDate(p.StartDate),
		models.FormatDate(p.CreatedDate),
		models.DurationSeconds(p.Duration),
		p.Active,
	}
}

// rebind rewrites ? placeholders into PostgreSQL's $n form.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// translateWriteError turns store constraint rejections into a
// DataValidationError and wraps anything else.
func translateWriteError(err error, msg string) error {
	if isConstraintViolation(err) {
		return models.ConstraintError(err)
	}
	return errors.Wrap(err, msg)
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "23")
	}

	return false
}
