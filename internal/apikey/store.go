// Package apikey is the API-key store: a per-deployment sqlite database
// holding scrypt-hashed key digests, migrated at startup and queried
// through sqlx.
package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/scrypt"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
)

const component = "apikey"

// scrypt cost parameters, fixed so every stored digest is reproducible from
// (key, salt) alone.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
	tokenBytes   = 40
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ApiKey is one entry's public projection: its name and when it was
// created. The digest and salt are never exposed outside this package.
type ApiKey struct {
	Name         string
	CreationDate time.Time
}

// Store is the API-key repository: one sqlite file per deployment.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if absent) the sqlite database at path and applies
// any pending migrations idempotently.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errkind.InvalidConfigurationError(component, "open", fmt.Sprintf("opening api key store at %q", path)).Wrap(err)
	}

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, errkind.InvalidConfigurationError(component, "open", "setting migration dialect").Wrap(err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, errkind.InvalidConfigurationError(component, "open", "applying api key migrations").Wrap(err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create generates a new API key for name, persists its salted digest, and
// returns the plaintext key. This is the only time the plaintext is ever
// available; it cannot be recovered later.
func (s *Store) Create(name string) (string, error) {
	key, err := randomToken()
	if err != nil {
		return "", errkind.InvalidConfigurationError(component, "create", "generating api key").Wrap(err)
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errkind.InvalidConfigurationError(component, "create", "generating salt").Wrap(err)
	}
	digest, err := hashKey(key, salt)
	if err != nil {
		return "", errkind.InvalidConfigurationError(component, "create", "hashing api key").Wrap(err)
	}

	_, err = s.db.Exec(
		`insert into ApiKey (name, api_key, salt, creation_date) values (?, ?, ?, ?)`,
		name, digest, salt, time.Now().UTC(),
	)
	if err != nil {
		return "", errkind.InvalidConfigurationError(component, "create", fmt.Sprintf("storing api key %q", name)).Wrap(err)
	}
	return key, nil
}

// List returns every stored key's name and creation date, ordered by name
// for deterministic output.
func (s *Store) List() ([]ApiKey, error) {
	rows, err := s.db.Queryx(`select name, creation_date from ApiKey order by name`)
	if err != nil {
		return nil, errkind.InvalidConfigurationError(component, "list", "listing api keys").Wrap(err)
	}
	defer rows.Close()

	var keys []ApiKey
	for rows.Next() {
		var k ApiKey
		if err := rows.Scan(&k.Name, &k.CreationDate); err != nil {
			return nil, errkind.InvalidConfigurationError(component, "list", "scanning api key row").Wrap(err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Has reports whether an API key named name exists.
func (s *Store) Has(name string) (bool, error) {
	var count int
	err := s.db.Get(&count, `select count(*) from ApiKey where name = ?`, name)
	if err != nil {
		return false, errkind.InvalidConfigurationError(component, "has", fmt.Sprintf("checking api key %q", name)).Wrap(err)
	}
	return count > 0, nil
}

// Validate reports whether presentedKey is the plaintext key stored for
// name, comparing digests in constant time. An unknown name is simply
// invalid, not an error.
func (s *Store) Validate(name, presentedKey string) (bool, error) {
	var row struct {
		ApiKey []byte `db:"api_key"`
		Salt   []byte `db:"salt"`
	}
	err := s.db.Get(&row, `select api_key, salt from ApiKey where name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errkind.InvalidConfigurationError(component, "validate", fmt.Sprintf("looking up api key %q", name)).Wrap(err)
	}

	digest, err := hashKey(presentedKey, row.Salt)
	if err != nil {
		return false, errkind.InvalidConfigurationError(component, "validate", "hashing presented api key").Wrap(err)
	}
	return subtle.ConstantTimeCompare(digest, row.ApiKey) == 1, nil
}

// Revoke deletes the API key named name. Revoking a name that doesn't
// exist is a no-op.
func (s *Store) Revoke(name string) error {
	_, err := s.db.Exec(`delete from ApiKey where name = ?`, name)
	if err != nil {
		return errkind.InvalidConfigurationError(component, "revoke", fmt.Sprintf("revoking api key %q", name)).Wrap(err)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashKey(key string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(key), salt, scryptN, scryptR, scryptP, scryptKeyLen)
}
