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

// RequestRepo implements the request persistence contract on gorm.
type RequestRepo struct {
	db *gorm.DB
}

// NewRequestRepo creates a request repository bound to the given handle.
func NewRequestRepo(db *gorm.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// Save upserts the request snapshot keyed by request id.
func (r *RequestRepo) Save(ctx context.Context, request domain.Request) error {
	row := requestRowFrom(request)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save request %s: %w", request.ID(), err)
	}
	return nil
}

// FindByID loads the request with the given id. Reports found=false when no
// row exists.
func (r *RequestRepo) FindByID(ctx context.Context, id domain.RequestID) (domain.Request, bool, error) {
	var row RequestRow
	err := r.db.WithContext(ctx).First(&row, "request_id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Request{}, false, nil
	}
	if err != nil {
		return domain.Request{}, false, fmt.Errorf("find request %s: %w", id, err)
	}
	request, err := row.toDomain()
	if err != nil {
		return domain.Request{}, false, err
	}
	return request, true, nil
}

// FindBySessionID loads every request belonging to a session in arrival order.
func (r *RequestRepo) FindBySessionID(ctx context.Context, id domain.SessionID) ([]domain.Request, error) {
	var rows []RequestRow
	err := r.db.WithContext(ctx).
		Where("session_id = ?", string(id)).
		Order("received_at_epoch ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find requests for session %s: %w", id, err)
	}

	requests := make([]domain.Request, 0, len(rows))
	for _, row := range rows {
		request, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// Delete removes the request row. Deleting a missing row is not an error.
func (r *RequestRepo) Delete(ctx context.Context, id domain.RequestID) error {
	err := r.db.WithContext(ctx).Delete(&RequestRow{}, "request_id = ?", string(id)).Error
	if err != nil {
		return fmt.Errorf("delete request %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a request row with the given id is stored.
func (r *RequestRepo) Exists(ctx context.Context, id domain.RequestID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RequestRow{}).
		Where("request_id = ?", string(id)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check request %s: %w", id, err)
	}
	return count > 0, nil
}

// CountBySessionID returns the number of stored requests for a session.
func (r *RequestRepo) CountBySessionID(ctx context.Context, id domain.SessionID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RequestRow{}).
		Where("session_id = ?", string(id)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count requests for session %s: %w", id, err)
	}
	return count, nil
}

func requestRowFrom(request domain.Request) RequestRow {
	message := request.Message()
	chunks := request.Chunks()
	records := make(models.JSONChunkList, len(chunks))
	for i, chunk := range chunks {
		tokens, _ := chunk.TotalTokens()
		records[i] = models.ChunkRecord{
			Kind:        string(chunk.Kind()),
			Content:     chunk.Content(),
			TotalTokens: tokens,
			Message:     chunk.ErrorMessage(),
		}
	}

	provider, _ := message.ProviderHint()
	maxTokens, _ := message.MaxTokens()
	completedAt, _ := request.CompletedAt()
	meta := request.CompletionMeta()

	return RequestRow{
		RequestID:        request.ID().String(),
		SessionID:        request.SessionID().String(),
		Prompt:           message.Prompt(),
		ProviderHint:     nullString(string(provider)),
		MaxTokens:        nullInt64(int64(maxTokens)),
		State:            string(request.State()),
		Chunks:           records,
		ReceivedAt:       formatTime(request.ReceivedAt()),
		ReceivedAtEpoch:  request.ReceivedAt().UnixMilli(),
		CompletedAt:      nullTime(completedAt),
		CompletedAtEpoch: nullEpoch(completedAt),
		FailureReason:    nullString(request.FailureReason()),
		TotalTokens:      nullInt64(int64(meta.TotalTokens)),
		StopReason:       nullString(meta.StopReason),
	}
}

func (row RequestRow) toDomain() (domain.Request, error) {
	message, err := domain.RehydrateClientMessage(row.Prompt, row.ProviderHint.String, int(row.MaxTokens.Int64))
	if err != nil {
		return domain.Request{}, fmt.Errorf("request %s message: %w", row.RequestID, err)
	}

	chunks := make([]domain.StreamChunk, len(row.Chunks))
	for i, record := range row.Chunks {
		chunk, err := domain.RehydrateChunk(domain.ChunkKind(record.Kind), record.Content, record.TotalTokens, record.Message)
		if err != nil {
			return domain.Request{}, fmt.Errorf("request %s chunk %d: %w", row.RequestID, i, err)
		}
		chunks[i] = chunk
	}

	receivedAt, err := parseTime(row.ReceivedAt)
	if err != nil {
		return domain.Request{}, err
	}
	completedAt, err := parseNullTime(row.CompletedAt)
	if err != nil {
		return domain.Request{}, err
	}

	return domain.RehydrateRequest(
		domain.RequestID(row.RequestID),
		domain.SessionID(row.SessionID),
		message,
		domain.RequestState(row.State),
		chunks,
		receivedAt,
		completedAt,
		row.FailureReason.String,
		domain.CompletionMeta{
			TotalTokens: int(row.TotalTokens.Int64),
			StopReason:  row.StopReason.String,
		},
	)
}
