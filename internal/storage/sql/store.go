package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrDuplicateName.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrDuplicateName
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================
// Users
// ============================================

func createUser(ctx context.Context, db dbInterface, user *domain.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, username, username_key, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, strings.ToLower(user.Username), user.CreatedAt, user.LastActiveAt)
	return wrapUniqueError(err)
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, s.db, user)
}

func (t *Tx) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, t.tx, user)
}

func getUser(ctx context.Context, db dbInterface, id string) (*domain.User, error) {
	var user domain.User
	err := db.GetContext(ctx, &user,
		`SELECT id, username, created_at, last_active_at FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.db, id)
}

func (t *Tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, t.tx, id)
}

func getUserByUsername(ctx context.Context, db dbInterface, username string) (*domain.User, error) {
	var user domain.User
	err := db.GetContext(ctx, &user,
		`SELECT id, username, created_at, last_active_at FROM users WHERE username_key = $1`,
		strings.ToLower(username))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return getUserByUsername(ctx, s.db, username)
}

func (t *Tx) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return getUserByUsername(ctx, t.tx, username)
}

func listUsers(ctx context.Context, db dbInterface) ([]*domain.User, error) {
	var users []*domain.User
	err := db.SelectContext(ctx, &users,
		`SELECT id, username, created_at, last_active_at FROM users ORDER BY username_key`)
	return users, err
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return listUsers(ctx, s.db)
}

func (t *Tx) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return listUsers(ctx, t.tx)
}

func userExists(ctx context.Context, db dbInterface, id string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE id = $1`, id)
	return count > 0, err
}

func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	return userExists(ctx, s.db, id)
}

func (t *Tx) UserExists(ctx context.Context, id string) (bool, error) {
	return userExists(ctx, t.tx, id)
}

func touchUserActivity(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET last_active_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) TouchUserActivity(ctx context.Context, id string) error {
	return touchUserActivity(ctx, s.db, id)
}

func (t *Tx) TouchUserActivity(ctx context.Context, id string) error {
	return touchUserActivity(ctx, t.tx, id)
}

// ============================================
// Sessions
// ============================================

func createSession(ctx context.Context, db dbInterface, session *domain.Session) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, prefix, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.TokenHash, session.Prefix, session.CreatedAt, session.ExpiresAt)
	return err
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return createSession(ctx, s.db, session)
}

func (t *Tx) CreateSession(ctx context.Context, session *domain.Session) error {
	return createSession(ctx, t.tx, session)
}

func getSessionByTokenHash(ctx context.Context, db dbInterface, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.GetContext(ctx, &session,
		`SELECT id, user_id, token_hash, prefix, created_at, expires_at
		 FROM sessions WHERE token_hash = $1`, tokenHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return getSessionByTokenHash(ctx, s.db, tokenHash)
}

func (t *Tx) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return getSessionByTokenHash(ctx, t.tx, tokenHash)
}

func deleteSession(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, s.db, id)
}

func (t *Tx) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, t.tx, id)
}

// ============================================
// Groups
// ============================================

func createGroup(ctx context.Context, db dbInterface, group *domain.Group) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO groups (id, name, name_key, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		group.ID, group.Name, domain.NameKey(group.Name), group.Description,
		group.OwnerID, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return wrapUniqueError(err)
	}
	return insertGroupSets(ctx, db, group)
}

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	return createGroup(ctx, s.db, group)
}

func (t *Tx) CreateGroup(ctx context.Context, group *domain.Group) error {
	return createGroup(ctx, t.tx, group)
}

func insertGroupSets(ctx context.Context, db dbInterface, group *domain.Group) error {
	for _, userID := range group.Members {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, userID); err != nil {
			return err
		}
	}
	for _, userID := range group.Moderators {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO group_moderators (group_id, user_id) VALUES ($1, $2)`, group.ID, userID); err != nil {
			return err
		}
	}
	for _, freetID := range group.Freets {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO group_freets (group_id, freet_id) VALUES ($1, $2)`, group.ID, freetID); err != nil {
			return err
		}
	}
	return nil
}

func loadGroupSets(ctx context.Context, db dbInterface, group *domain.Group) error {
	group.Members = []string{}
	group.Moderators = []string{}
	group.Freets = []string{}
	if err := db.SelectContext(ctx, &group.Members,
		`SELECT user_id FROM group_members WHERE group_id = $1`, group.ID); err != nil {
		return err
	}
	if err := db.SelectContext(ctx, &group.Moderators,
		`SELECT user_id FROM group_moderators WHERE group_id = $1`, group.ID); err != nil {
		return err
	}
	return db.SelectContext(ctx, &group.Freets,
		`SELECT freet_id FROM group_freets WHERE group_id = $1`, group.ID)
}

func getGroup(ctx context.Context, db dbInterface, id string) (*domain.Group, error) {
	var group domain.Group
	err := db.GetContext(ctx, &group,
		`SELECT id, name, description, owner_id, created_at, updated_at FROM groups WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadGroupSets(ctx, db, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return getGroup(ctx, s.db, id)
}

func (t *Tx) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return getGroup(ctx, t.tx, id)
}

func getGroupByName(ctx context.Context, db dbInterface, name string) (*domain.Group, error) {
	var group domain.Group
	err := db.GetContext(ctx, &group,
		`SELECT id, name, description, owner_id, created_at, updated_at FROM groups WHERE name_key = $1`,
		domain.NameKey(name))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadGroupSets(ctx, db, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *Store) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	return getGroupByName(ctx, s.db, name)
}

func (t *Tx) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	return getGroupByName(ctx, t.tx, name)
}

func listGroups(ctx context.Context, db dbInterface) ([]*domain.Group, error) {
	var groups []*domain.Group
	err := db.SelectContext(ctx, &groups,
		`SELECT id, name, description, owner_id, created_at, updated_at FROM groups ORDER BY name_key`)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if err := loadGroupSets(ctx, db, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return listGroups(ctx, s.db)
}

func (t *Tx) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return listGroups(ctx, t.tx)
}

func listGroupsForUser(ctx context.Context, db dbInterface, userID string) ([]*domain.Group, error) {
	var groups []*domain.Group
	err := db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at
		 FROM groups g JOIN group_members m ON g.id = m.group_id
		 WHERE m.user_id = $1
		 ORDER BY g.name_key`, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if err := loadGroupSets(ctx, db, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return listGroupsForUser(ctx, s.db, userID)
}

func (t *Tx) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return listGroupsForUser(ctx, t.tx, userID)
}

func updateGroup(ctx context.Context, db dbInterface, group *domain.Group) error {
	group.UpdatedAt = time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`UPDATE groups SET name = $1, name_key = $2, description = $3, owner_id = $4, updated_at = $5
		 WHERE id = $6`,
		group.Name, domain.NameKey(group.Name), group.Description, group.OwnerID,
		group.UpdatedAt, group.ID)
	if err != nil {
		return wrapUniqueError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	// Delete and re-insert the membership and freet sets
	for _, table := range []string{"group_members", "group_moderators", "group_freets"} {
		if _, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE group_id = $1`, group.ID); err != nil {
			return err
		}
	}
	return insertGroupSets(ctx, db, group)
}

func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	return updateGroup(ctx, s.db, group)
}

func (t *Tx) UpdateGroup(ctx context.Context, group *domain.Group) error {
	return updateGroup(ctx, t.tx, group)
}

func deleteGroup(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return deleteGroup(ctx, s.db, id)
}

func (t *Tx) DeleteGroup(ctx context.Context, id string) error {
	return deleteGroup(ctx, t.tx, id)
}

// ============================================
// Freets
// ============================================

func createFreet(ctx context.Context, db dbInterface, freet *domain.Freet) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO freets (id, author_id, content, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		freet.ID, freet.AuthorID, freet.Content, freet.CreatedAt, freet.ModifiedAt)
	return err
}

func (s *Store) CreateFreet(ctx context.Context, freet *domain.Freet) error {
	return createFreet(ctx, s.db, freet)
}

func (t *Tx) CreateFreet(ctx context.Context, freet *domain.Freet) error {
	return createFreet(ctx, t.tx, freet)
}

func getFreet(ctx context.Context, db dbInterface, id string) (*domain.Freet, error) {
	var freet domain.Freet
	err := db.GetContext(ctx, &freet,
		`SELECT id, author_id, content, created_at, modified_at FROM freets WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &freet, nil
}

func (s *Store) GetFreet(ctx context.Context, id string) (*domain.Freet, error) {
	return getFreet(ctx, s.db, id)
}

func (t *Tx) GetFreet(ctx context.Context, id string) (*domain.Freet, error) {
	return getFreet(ctx, t.tx, id)
}

func freetExists(ctx context.Context, db dbInterface, id string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM freets WHERE id = $1`, id)
	return count > 0, err
}

func (s *Store) FreetExists(ctx context.Context, id string) (bool, error) {
	return freetExists(ctx, s.db, id)
}

func (t *Tx) FreetExists(ctx context.Context, id string) (bool, error) {
	return freetExists(ctx, t.tx, id)
}

func listFreets(ctx context.Context, db dbInterface, ids []string) ([]*domain.Freet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, author_id, content, created_at, modified_at FROM freets
		 WHERE id IN (?) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	var freets []*domain.Freet
	err = db.SelectContext(ctx, &freets, db.Rebind(query), args...)
	return freets, err
}

func (s *Store) ListFreets(ctx context.Context, ids []string) ([]*domain.Freet, error) {
	return listFreets(ctx, s.db, ids)
}

func (t *Tx) ListFreets(ctx context.Context, ids []string) ([]*domain.Freet, error) {
	return listFreets(ctx, t.tx, ids)
}
