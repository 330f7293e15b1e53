package mysql

import (
    "context"
    "database/sql"
    "encoding/json"
    "strings"
    "time"

    domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

type StageErrorRepository struct {
    db *sql.DB
}

func NewStageErrorRepository(db *sql.DB) *StageErrorRepository { return &StageErrorRepository{db: db} }

func (r *StageErrorRepository) Save(ctx context.Context, e *domain.StageError) error {
    const q = `
INSERT INTO va_claim_stage_errors
  (claim_id, stage, message, details_json, created_at)
VALUES (?,?,?,?,?)
`
    claim := dashIfEmpty(e.ClaimID)
    stage := dashIfEmpty(e.Stage)
    msg := e.Message
    if strings.TrimSpace(msg) == "" {
        msg = "-"
    }
    details := e.DetailsJSON
    if strings.TrimSpace(details) == "" {
        details = "{}"
    } else {
        // ensure valid json; if invalid, wrap as string field
        var js any
        if json.Unmarshal([]byte(details), &js) != nil {
            b, _ := json.Marshal(map[string]string{"raw": details})
            details = string(b)
        }
    }
    created := e.CreatedAt
    if created.IsZero() {
        created = time.Now()
    }
    _, err := r.db.ExecContext(ctx, q, claim, stage, msg, details, created)
    return err
}

func (r *StageErrorRepository) ListByClaim(ctx context.Context, claimID string, limit int) ([]*domain.StageError, error) {
    if limit <= 0 { limit = 20 }
    const q = `
SELECT id, claim_id, stage, message, details_json, created_at
FROM va_claim_stage_errors
WHERE claim_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
    rows, err := r.db.QueryContext(ctx, q, claimID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.StageError
    for rows.Next() {
        var e domain.StageError
        var created time.Time
        if err := rows.Scan(&e.ID, &e.ClaimID, &e.Stage, &e.Message, &e.DetailsJSON, &created); err != nil {
            return nil, err
        }
        e.CreatedAt = created
        out = append(out, &e)
    }
    return out, rows.Err()
}

func dashIfEmpty(s string) string { if strings.TrimSpace(s) == "" { return "-" }; return s }
