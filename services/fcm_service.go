package services

import (
	"bytes"
	"context"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService sends push notifications through the Firebase Cloud Messaging
// HTTP v1 API.
type FCMService struct {
	projectID   string
	credentials *jwt.Config
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// ServiceAccountCredentials represents the structure of Firebase service account JSON
type ServiceAccountCredentials struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// NewFCMService initializes the FCM service from a service account JSON file.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}
	if creds.ProjectID == "" || creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file is missing required fields")
	}

	// Check the private key parses before the first send fails at runtime.
	block, _ := pem.Decode([]byte(creds.PrivateKey))
	if block == nil {
		return nil, fmt.Errorf("invalid private key PEM")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}
	if config.TokenURL == "" {
		config.TokenURL = "https://oauth2.googleapis.com/token"
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		credentials: config,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

type fcmMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

// SendToToken delivers one notification to a single device token.
func (s *FCMService) SendToToken(token, title, body string, data map[string]string) error {
	accessToken, err := s.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain FCM access token: %v", err)
	}

	var msg fcmMessage
	msg.Message.Token = token
	msg.Message.Notification = map[string]string{"title": title, "body": body}
	msg.Message.Data = data

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal FCM message: %v", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", s.projectID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("FCM returned status %d: %s", resp.StatusCode, string(errBody))
	}
	return nil
}

// SaveFCMToken stores (or refreshes) a device token for the user.
func (s *FCMService) SaveFCMToken(userID int, token string) error {
	_, err := s.db.Exec(`
		INSERT INTO device_tokens (user_id, device_token, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, device_token) DO UPDATE SET created_at = NOW()
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to save device token: %v", err)
	}
	return nil
}

// RemoveFCMToken deletes every device token of the user.
func (s *FCMService) RemoveFCMToken(userID int) error {
	_, err := s.db.Exec(`DELETE FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to remove device tokens: %v", err)
	}
	return nil
}

// SendToUser sends the notification to every registered device of the user.
// Delivery problems are logged, not returned; push is best effort.
func (s *FCMService) SendToUser(userID int, title, body string, data map[string]string) {
	rows, err := s.db.Query(`SELECT device_token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		log.Printf("Error fetching device tokens for user %d: %v", userID, err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			log.Printf("Error scanning device token: %v", err)
			continue
		}
		if err := s.SendToToken(token, title, body, data); err != nil {
			log.Printf("Error sending push notification to user %d: %v", userID, err)
		}
	}
}
