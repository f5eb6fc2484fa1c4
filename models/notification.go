package models

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRecord is a transactional outbox row: it is written inside the
// DB transaction that produced the event and published to Pub/Sub
// asynchronously by the notification dispatcher after commit.
type NotificationRecord struct {
	ID                int                       `gorm:"primary_key" json:"id"`
	OrganizationId    int                       `gorm:"index;not null" json:"organization_id"`
	NotificationType  NotificationType          `gorm:"size:30;not null" json:"notification_type"`
	Message           string                    `gorm:"size:500;not null" json:"message"`
	RelatedEntityType string                    `gorm:"size:50" json:"related_entity_type"`
	RelatedEntityId   int                       `json:"related_entity_id"`
	SendToManagers    *bool                     `gorm:"not null;default:false" json:"send_to_managers"`
	CorrelationId     string                    `gorm:"size:36" json:"correlation_id"`
	PublishStatus     NotificationPublishStatus `gorm:"size:20;not null;default:PENDING;index" json:"publish_status"`
	PublishAttempts   int                       `gorm:"not null;default:0" json:"publish_attempts"`
	LastPublishError  *string                   `gorm:"size:500" json:"last_publish_error"`
	NextAttemptAt     *time.Time                `json:"next_attempt_at"`
	LockedAt          *time.Time                `json:"locked_at"`
	LockedBy          *string                   `gorm:"size:36" json:"locked_by"`
	PublishedAt       *time.Time                `json:"published_at"`
	PubSubMessageId   *string                   `gorm:"size:100" json:"pub_sub_message_id"`
	CreatedAt         time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n NotificationRecord) GetOrganizationId() int {
	return n.OrganizationId
}

// queueNotification appends an outbox row inside the caller's transaction.
func queueNotification(tx *gorm.DB, ctx context.Context, record *NotificationRecord) error {
	record.PublishStatus = NotificationPublishStatusPending
	record.CorrelationId = correlationIdFromContextOrNew(ctx)
	if record.SendToManagers == nil {
		record.SendToManagers = utils.NewFalse()
	}
	return tx.WithContext(ctx).Create(record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ConvertToNotificationMessage maps an outbox row to the Pub/Sub payload.
func ConvertToNotificationMessage(record NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:                record.ID,
		OrganizationId:    record.OrganizationId,
		NotificationType:  string(record.NotificationType),
		Message:           record.Message,
		RelatedEntityType: record.RelatedEntityType,
		RelatedEntityId:   record.RelatedEntityId,
		SendToManagers:    utils.DereferencePtr(record.SendToManagers),
		CorrelationId:     record.CorrelationId,
		CreatedAt:         record.CreatedAt,
	}
}

// ListNotifications pages an org's outbox, newest first, optionally filtered
// by publish status.
func ListNotifications(ctx context.Context, status *NotificationPublishStatus, limit int, offset int) ([]*NotificationRecord, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if status != nil {
		dbCtx = dbCtx.Where("publish_status = ?", *status)
	}

	var records []*NotificationRecord
	if err := dbCtx.Order("id DESC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
