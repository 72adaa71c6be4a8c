package handlers

import (
	"backend/models"
	"backend/services"
	"database/sql"
	"log"
	"strconv"
	"time"
)

// Global FCM service - set from main.go
var GlobalFCMService *services.FCMService

// SetFCMService sets the global FCM service.
func SetFCMService(fcmService *services.FCMService) {
	GlobalFCMService = fcmService
}

// SendNotificationHelper stores an in-app notification and pushes it to the
// user's devices. Best effort: failures are logged, never returned.
func SendNotificationHelper(db *sql.DB, userID int, title, body string, data map[string]string, action string) {
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
		VALUES ($1, $2, 'unread', $3, $4, $5)
	`, userID, body, action, now, now)
	if err != nil {
		log.Printf("Error storing notification for user %d: %v", userID, err)
	}

	if GlobalFCMService != nil {
		GlobalFCMService.SendToUser(userID, title, body, data)
	}
}

// matrixNotifier adapts the notification pipeline to the editor session's
// feedback collaborator.
type matrixNotifier struct {
	db        *sql.DB
	userID    int
	requestID int
}

func (n *matrixNotifier) Success(message string) {
	SendNotificationHelper(n.db, n.userID, "Purchase Request", message,
		map[string]string{"request_id": strconv.Itoa(n.requestID)}, "view_request")
}

func (n *matrixNotifier) Failure(message string) {
	SendNotificationHelper(n.db, n.userID, "Purchase Request", message,
		map[string]string{"request_id": strconv.Itoa(n.requestID)}, "view_request")
}

// LogRequestActivity writes an activity row for a request event.
func LogRequestActivity(session *models.Session, userName, eventName, description string, requestID int) {
	entry := &models.ActivityLog{
		CreatedAt:    time.Now(),
		UserName:     userName,
		EventContext: "purchase_request",
		EventName:    eventName,
		Description:  description,
		RequestID:    requestID,
	}
	if session != nil {
		entry.HostName = session.HostName
		entry.IPAddress = session.IPAddress
	}
	if err := saveActivityLog(entry); err != nil {
		log.Printf("Error saving activity log: %v", err)
	}
}
