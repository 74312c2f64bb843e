package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAppointmentScheduled NotificationType = "appointment_scheduled"
	NotificationAppointmentStatus    NotificationType = "appointment_status"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationAppointmentReminder  NotificationType = "appointment_reminder"
	NotificationAnonymousReply       NotificationType = "anonymous_reply"
	NotificationNewStudent           NotificationType = "new_student"
	NotificationFeedbackResponse     NotificationType = "feedback_response"
	NotificationInquiryResponse      NotificationType = "inquiry_response"
)

type Notification struct {
	ID                     uuid.UUID        `json:"id"`
	UserID                 uuid.UUID        `json:"user_id"` // всегда UID аккаунта из каталога
	Type                   NotificationType `json:"type"`
	Title                  string           `json:"title"`
	Message                string           `json:"message"`
	AppointmentID          *uuid.UUID       `json:"appointment_id,omitempty"`
	PostID                 *string          `json:"post_id,omitempty"`
	Unread                 bool             `json:"unread"`
	RequiresAcknowledgment bool             `json:"requires_acknowledgment"`
	Acknowledged           bool             `json:"acknowledged"`
	CreatedAt              time.Time        `json:"created_at"`
}
