package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in audit_logs. OldValues/NewValues are
// structured snapshots of the mutated row; ActorID 0 means a system action.
type AuditEntry struct {
	ActorID   int64
	Action    string
	Entity    string
	EntityID  string
	OldValues map[string]any
	NewValues map[string]any
	IP        string
	UserAgent string
	At        time.Time
}

// Recorder is the audit sink used by services. Recording is fire-and-forget;
// implementations must not block primary operations on failure.
type Recorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditEntryFromContext builds an entry stamped with the caller identity held
// in ctx. A missing identity yields ActorID 0 (system action).
func AuditEntryFromContext(ctx context.Context, action, entity string, entityID int64, oldValues, newValues map[string]any) AuditEntry {
	id, _ := IdentityFromContext(ctx)
	return AuditEntry{
		ActorID:   id.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(entityID, 10),
		OldValues: oldValues,
		NewValues: newValues,
		IP:        id.IP,
		UserAgent: id.UserAgent,
	}
}

// RecordAudit writes the entry through rec after the primary operation has
// committed. A failing sink is logged and suppressed; it never propagates.
func RecordAudit(ctx context.Context, rec Recorder, log *slog.Logger, entry AuditEntry) {
	if rec == nil {
		return
	}
	if err := rec.Record(context.WithoutCancel(ctx), entry); err != nil && log != nil {
		log.Warn("audit record failed",
			"action", entry.Action, "entity", entry.Entity, "entity_id", entry.EntityID, "error", err)
	}
}

// AuditRecorder appends entries into audit_logs. Recording is best-effort:
// callers must never fail or roll back a primary operation because of it.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder returns a new AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// Record persists the entry.
func (r *AuditRecorder) Record(ctx context.Context, entry AuditEntry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	oldJSON, err := json.Marshal(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(entry.NewValues)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, old_values, new_values, ip, user_agent, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9, NOW()))`,
		nullInt64(entry.ActorID), entry.Action, entry.Entity, entry.EntityID, oldJSON, newJSON, entry.IP, entry.UserAgent, nullTime(entry.At))
	return err
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
