package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresStore keeps each entity as a whole JSONB document keyed by its
// business name, matching the document-per-row shape the frontend expects.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListGuidelines(ctx context.Context) ([]Guideline, error) {
	return scanGuidelines(s.db.QueryContext(ctx,
		`SELECT doc FROM guidelines ORDER BY guidance_number`))
}

// SearchGuidelines matches a case-insensitive substring of LongTitle.
func (s *PostgresStore) SearchGuidelines(ctx context.Context, term string) ([]Guideline, error) {
	pattern := "%" + escapeLike(term) + "%"
	return scanGuidelines(s.db.QueryContext(ctx,
		`SELECT doc FROM guidelines WHERE doc->>'LongTitle' ILIKE $1 ESCAPE '\' ORDER BY guidance_number`,
		pattern))
}

func (s *PostgresStore) GetGuidelineByNumber(ctx context.Context, number string) (Guideline, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM guidelines WHERE guidance_number=$1`, number).Scan(&raw)
	if err != nil {
		return Guideline{}, err
	}
	var g Guideline
	if err := json.Unmarshal(raw, &g); err != nil {
		return Guideline{}, fmt.Errorf("decode guideline %s: %w", number, err)
	}
	return g, nil
}

func (s *PostgresStore) InsertGuideline(ctx context.Context, g Guideline) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode guideline: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO guidelines (id, guidance_number, doc) VALUES ($1, $2, $3)`,
		g.ID, g.GuidanceNumber, raw)
	if err != nil {
		return fmt.Errorf("insert guideline %s: %w", g.GuidanceNumber, err)
	}
	return nil
}

func (s *PostgresStore) ReplaceGuideline(ctx context.Context, g Guideline) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode guideline: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE guidelines SET doc=$2, updated_at=NOW() WHERE guidance_number=$1`,
		g.GuidanceNumber, raw)
	if err != nil {
		return fmt.Errorf("replace guideline %s: %w", g.GuidanceNumber, err)
	}
	return noRowsIfZero(res)
}

func (s *PostgresStore) DeleteGuidelineByNumber(ctx context.Context, number string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM guidelines WHERE guidance_number=$1`, number)
	if err != nil {
		return fmt.Errorf("delete guideline %s: %w", number, err)
	}
	return noRowsIfZero(res)
}

func (s *PostgresStore) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM branches ORDER BY branch_name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	branches := []Branch{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		var b Branch
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (s *PostgresStore) GetBranchByName(ctx context.Context, name string) (Branch, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM branches WHERE branch_name=$1`, name).Scan(&raw)
	if err != nil {
		return Branch{}, err
	}
	var b Branch
	if err := json.Unmarshal(raw, &b); err != nil {
		return Branch{}, fmt.Errorf("decode branch %s: %w", name, err)
	}
	return b, nil
}

func (s *PostgresStore) InsertBranch(ctx context.Context, b Branch) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode branch: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO branches (id, branch_name, doc) VALUES ($1, $2, $3)`,
		b.ID, b.BranchName, raw)
	if err != nil {
		return fmt.Errorf("insert branch %s: %w", b.BranchName, err)
	}
	return nil
}

func (s *PostgresStore) ReplaceBranch(ctx context.Context, b Branch) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode branch: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE branches SET doc=$2, updated_at=NOW() WHERE branch_name=$1`,
		b.BranchName, raw)
	if err != nil {
		return fmt.Errorf("replace branch %s: %w", b.BranchName, err)
	}
	return noRowsIfZero(res)
}

func (s *PostgresStore) DeleteBranchByName(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM branches WHERE branch_name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return noRowsIfZero(res)
}

func (s *PostgresStore) ListApprovals(ctx context.Context) ([]Approval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM approvals ORDER BY approval_request_name`)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	approvals := []Approval{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		var a Approval
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode approval: %w", err)
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func (s *PostgresStore) GetApprovalByName(ctx context.Context, name string) (Approval, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM approvals WHERE approval_request_name=$1`, name).Scan(&raw)
	if err != nil {
		return Approval{}, err
	}
	var a Approval
	if err := json.Unmarshal(raw, &a); err != nil {
		return Approval{}, fmt.Errorf("decode approval %s: %w", name, err)
	}
	return a, nil
}

func (s *PostgresStore) InsertApproval(ctx context.Context, a Approval) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode approval: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO approvals (id, approval_request_name, doc) VALUES ($1, $2, $3)`,
		a.ID, a.ApprovalRequestName, raw)
	if err != nil {
		return fmt.Errorf("insert approval %s: %w", a.ApprovalRequestName, err)
	}
	return nil
}

func (s *PostgresStore) DeleteApprovalByName(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM approvals WHERE approval_request_name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete approval %s: %w", name, err)
	}
	return noRowsIfZero(res)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM users ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUserByUserName(ctx context.Context, userName string) (User, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM users WHERE user_name=$1`, userName).Scan(&raw)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", userName, err)
	}
	return u, nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, user_name, doc) VALUES ($1, $2, $3)`,
		u.ID, u.UserName, raw)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.UserName, err)
	}
	return nil
}

func (s *PostgresStore) CountGuidelines(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guidelines`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count guidelines: %w", err)
	}
	return count, nil
}

// Reset empties every collection. Used by the seeder only.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`TRUNCATE guidelines, branches, approvals, users`)
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

func scanGuidelines(rows *sql.Rows, err error) ([]Guideline, error) {
	if err != nil {
		return nil, fmt.Errorf("query guidelines: %w", err)
	}
	defer rows.Close()

	guidelines := []Guideline{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan guideline: %w", err)
		}
		var g Guideline
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("decode guideline: %w", err)
		}
		guidelines = append(guidelines, g)
	}
	return guidelines, rows.Err()
}

func noRowsIfZero(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
