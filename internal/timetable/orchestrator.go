package timetable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glasgow-exams/timetable-ingest/internal/notification"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Orchestrator dispatches a ParsedPayload to the matching ingester inside
// one transaction, appends an UploadLog on success, and queues an admin
// notification summarizing any row-level ingest errors.
type Orchestrator struct {
	repo   Repository
	notify *notification.NotificationService
	logger *zap.Logger
}

// NewOrchestrator wires the repository, the notification service used to
// alert admins of row-level ingest problems, and a zap logger for
// structured per-upload events.
func NewOrchestrator(repo Repository, notify *notification.NotificationService, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{repo: repo, notify: notify, logger: logger}
}

// ProcessUpload implements spec.md §4.9: dispatch by payload kind inside a
// transaction, record an UploadLog on success, and return the summary.
func (o *Orchestrator) ProcessUpload(ctx context.Context, fileName string, uploadedBy *primitive.ObjectID, payload *ParsedPayload) (*IngestSummary, error) {
	var summary *IngestSummary

	err := o.repo.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		switch payload.Kind {
		case PayloadExam:
			summary, err = IngestExamRows(txCtx, o.repo, payload.Rows)
		case PayloadProvisions:
			summary, err = IngestProvisionRows(txCtx, o.repo, payload.Rows)
		case PayloadVenue:
			summary, err = IngestVenueDays(txCtx, o.repo, payload.VenueDays)
		default:
			summary = &IngestSummary{Handled: false, Errors: []string{"Unrecognized payload; no ingester matched this sheet."}}
			return nil
		}
		if err != nil {
			return err
		}
		if label, ok := payloadTypeLabel(payload.Kind).(string); ok {
			summary.Type = label
		}

		if err := o.repo.WriteUploadLog(txCtx, &UploadLog{
			FileName:       fileName,
			UploadedBy:     uploadedBy,
			RecordsCreated: summary.Created,
			RecordsUpdated: summary.Updated,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		o.logger.Error("ingest transaction failed",
			zap.String("file", fileName),
			zap.String("kind", string(payload.Kind)),
			zap.Error(err),
		)
		return nil, err
	}

	o.logger.Info("ingest completed",
		zap.String("file", fileName),
		zap.String("kind", string(payload.Kind)),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("errors", len(summary.Errors)),
	)

	if len(summary.Errors) > 0 {
		o.queueRowErrorNotification(ctx, fileName, summary)
	}

	return summary, nil
}

// queueRowErrorNotification schedules an immediate admin-facing email
// summarizing row-level ingest errors. Failure to schedule it is logged
// but never fails the upload itself, since the ingest already committed.
func (o *Orchestrator) queueRowErrorNotification(ctx context.Context, fileName string, summary *IngestSummary) {
	if o.notify == nil {
		return
	}
	msg := fmt.Sprintf("Upload %q completed with %d row error(s):\n%s", fileName, len(summary.Errors), strings.Join(summary.Errors, "\n"))
	err := o.notify.ScheduleNotification(ctx, &notification.Notification{
		Message:  msg,
		SendTime: time.Now(),
		Roles:    []string{"admin"},
	})
	if err != nil {
		o.logger.Warn("failed to queue ingest error notification", zap.String("file", fileName), zap.Error(err))
	}
}
