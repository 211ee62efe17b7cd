package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/storeit/internal/config"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK and returns its Auth client.
// Used only for optional federated sign-in.
func InitFirebase(ctx context.Context, cfg config.FirebaseConfig) (*auth.Client, error) {
	// Decode base64 private key
	privateKey, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode firebase private key: %w", err)
	}

	credentialsJSON, err := json.Marshal(map[string]interface{}{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"private_key":  string(privateKey),
		"client_email": cfg.ClientEmail,
	})
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}
	return client, nil
}
