package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config locates the Firebase project. Empty values fall back to Application
// Default Credentials and the project they carry.
type Config struct {
	CredentialsFile string
	ProjectID       string
}

// GetApp creates a Firebase App instance.
func GetApp(ctx context.Context, cfg Config) (*firebase.App, error) {
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}
	return app, nil
}

// InitFirebaseAuth returns the Auth client used to verify ID tokens.
func InitFirebaseAuth(ctx context.Context, app *firebase.App) (*firebaseauth.Client, error) {
	fbAuth, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}
	return fbAuth, nil
}

// InitFirestore returns a Firestore client. Callers own Close.
func InitFirestore(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore [%w]", err)
	}
	return client, nil
}

// InitStorageBucket returns a handle to bucket through the app's Cloud Storage client.
func InitStorageBucket(ctx context.Context, app *firebase.App, bucket string) (*gcs.BucketHandle, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing cloud storage [%w]", err)
	}
	handle, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s [%w]", bucket, err)
	}
	return handle, nil
}
