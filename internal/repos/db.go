package repos

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "eshop/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection also keeps :memory:
	// databases from splitting across pool connections.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, err
	}

	if err := migrateUp(db.DB); err != nil {
		return nil, err
	}
	// Demo catalog and accounts (idempotent; safe to run every start)
	if err := seedProducts(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite driver: %w", err)
	}
	// m is not closed: closing it would close db as well.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func seedProducts(db *sqlx.DB) error {
	res, err := db.Exec(`
	  INSERT INTO products(url_key,name,description,featured,price,sale_price,stock,price_ref) VALUES
	    ('aurora-lamp','Aurora Desk Lamp','Brass desk lamp with a linen shade.',1,4900,3900,12,'price_demo_aurora'),
	    ('drift-mug','Drift Stoneware Mug','Hand-thrown mug, 350 ml.',1,1800,NULL,40,'price_demo_drift'),
	    ('field-notebook','Field Notebook','Dot-grid notebook, 96 pages.',0,1200,NULL,100,'price_demo_field')
	  ON CONFLICT(url_key) DO NOTHING`)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		applog.Boot("seed.products", "inserted %d demo products", n)
	}
	return nil
}

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, First, Last, Email, Role, Hash string
	}
	mk := func(id, first, last, email, role, raw string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, First: first, Last: last, Email: email, Role: role, Hash: string(h)}, err
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users WHERE id IN ('u-alice','u-admin')`); err != nil {
		return err
	}
	if n == 2 {
		return nil
	}

	alice, err := mk("u-alice", "Alice", "Archer", "alice@eshop.test", "USER", "Passw0rd!")
	if err != nil {
		return err
	}
	admin, err := mk("u-admin", "Ada", "Admin", "admin@eshop.test", "ADMIN", "Passw0rd!")
	if err != nil {
		return err
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range []u{alice, admin} {
		if _, err := tx.Exec(`
			INSERT INTO users(id,first_name,last_name,email,password_hash,role)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.First, x.Last, x.Email, x.Hash, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}
