package models

import (
	"time"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	EmployeeId  string    `json:"employee_id" example:"EMP001"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	RoleID      int       `json:"role_id" example:"1"`
	RoleName    string    `json:"role_name" example:"Purchase Manager"`
	Suspended   bool      `json:"suspended" example:"false"`
	DeviceToken string    `json:"device_token,omitempty" example:""`
}

type Session struct {
	UserID    int       `json:"user_id"`
	SessionID string    `json:"session_id"`
	HostName  string    `json:"host_name"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestp"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:""`
	IP       string `json:"ip" example:"192.168.1.10"`
}

type LoginResponse struct {
	Message     string `json:"message" example:"Login successful"`
	AccessToken string `json:"access_token" example:""`
	SessionID   string `json:"session_id" example:""`
	Role        string `json:"role" example:"Purchase Manager"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty" example:""`
}

type Notification struct {
	ID        int       `json:"id" example:"1"`
	UserID    int       `json:"user_id" example:"1"`
	Message   string    `json:"message" example:"Allocations saved"`
	Status    string    `json:"status" example:"unread"`
	Action    string    `json:"action" example:"view_request"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// ActivityLog rows are written through GORM, the rest of the schema is plain SQL.
type ActivityLog struct {
	ID           int       `gorm:"primaryKey;column:id" json:"id" example:"1"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at" example:"2024-01-15T10:30:00Z"`
	UserName     string    `gorm:"column:user_name" json:"user_name" example:"John Doe"`
	HostName     string    `gorm:"column:host_name" json:"host_name" example:"workstation-01"`
	EventContext string    `gorm:"column:event_context" json:"event_context" example:"purchase_request"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address" example:"192.168.1.1"`
	Description  string    `gorm:"column:description" json:"description" example:"Allocations saved"`
	EventName    string    `gorm:"column:event_name" json:"event_name" example:"save_allocations"`
	RequestID    int       `gorm:"column:request_id" json:"request_id" example:"1"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
