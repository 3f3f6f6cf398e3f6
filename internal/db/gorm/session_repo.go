package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/gatebook/internal/domain"
	"github.com/thebtf/gatebook/pkg/models"
)

// SessionRepo implements the session persistence contract on gorm.
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo creates a session repository bound to the given handle,
// which may be the shared connection or an open transaction.
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Save upserts the session snapshot keyed by session id.
func (r *SessionRepo) Save(ctx context.Context, session domain.Session) error {
	row := sessionRowFrom(session)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID(), err)
	}
	return nil
}

// FindByID loads the session with the given id. Reports found=false when no
// row exists.
func (r *SessionRepo) FindByID(ctx context.Context, id domain.SessionID) (domain.Session, bool, error) {
	var row SessionRow
	err := r.db.WithContext(ctx).First(&row, "session_id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("find session %s: %w", id, err)
	}
	session, err := row.toDomain()
	if err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

// Delete removes the session row. Deleting a missing row is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id domain.SessionID) error {
	err := r.db.WithContext(ctx).Delete(&SessionRow{}, "session_id = ?", string(id)).Error
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a session row with the given id is stored.
func (r *SessionRepo) Exists(ctx context.Context, id domain.SessionID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SessionRow{}).
		Where("session_id = ?", string(id)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", id, err)
	}
	return count > 0, nil
}

func sessionRowFrom(session domain.Session) SessionRow {
	ids := session.RequestIDs()
	rawIDs := make(models.JSONStringArray, len(ids))
	for i, id := range ids {
		rawIDs[i] = id.String()
	}

	closedAt, _ := session.ClosedAt()
	return SessionRow{
		SessionID:          session.ID().String(),
		State:              string(session.State()),
		EstablishedAt:      formatTime(session.EstablishedAt()),
		EstablishedAtEpoch: session.EstablishedAt().UnixMilli(),
		ClosedAt:           nullTime(closedAt),
		ClosedAtEpoch:      nullEpoch(closedAt),
		CloseReason:        nullString(session.CloseReason()),
		RequestIDs:         rawIDs,
	}
}

func (row SessionRow) toDomain() (domain.Session, error) {
	establishedAt, err := parseTime(row.EstablishedAt)
	if err != nil {
		return domain.Session{}, err
	}
	closedAt, err := parseNullTime(row.ClosedAt)
	if err != nil {
		return domain.Session{}, err
	}

	requestIDs := make([]domain.RequestID, len(row.RequestIDs))
	for i, raw := range row.RequestIDs {
		id, err := domain.ParseRequestID(raw)
		if err != nil {
			return domain.Session{}, fmt.Errorf("session %s request ids: %w", row.SessionID, err)
		}
		requestIDs[i] = id
	}

	return domain.RehydrateSession(
		domain.SessionID(row.SessionID),
		domain.SessionState(row.State),
		requestIDs,
		establishedAt,
		closedAt,
		row.CloseReason.String,
	)
}
