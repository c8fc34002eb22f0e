// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package artifacts moves pipeline artifacts to and from Google Cloud
// Storage: deployment and quality reports going up, performance
// baselines coming down.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/posecoach/posectl/pkg/logging"
)

// Store reads and writes artifacts in a GCS bucket.
type Store struct {
	client *storage.Client
	log    *logging.Logger
}

// New creates an artifact store.
//
// # Inputs
//
//   - ctx: Governs credential exchange.
//   - credentialsFile: Service-account key path; empty uses application
//     default credentials.
//   - log: Structured logger. Nil uses the package default.
func New(ctx context.Context, credentialsFile string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &Store{client: client, log: log}, nil
}

// Upload copies a local file to a gs:// destination.
func (s *Store) Upload(ctx context.Context, localPath, gcsURL string) error {
	bucket, object, err := ParseURL(gcsURL)
	if err != nil {
		return err
	}

	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	writer := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		return fmt.Errorf("failed to copy %s to gs://%s/%s: %w", localPath, bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}

	s.log.Info("uploaded artifact", "local", localPath, "destination", gcsURL)
	return nil
}

// Download fetches a gs:// object's full contents.
func (s *Store) Download(ctx context.Context, gcsURL string) ([]byte, error) {
	bucket, object, err := ParseURL(gcsURL)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ParseURL splits a gs://bucket/path URL into bucket and object parts.
func ParseURL(gcsURL string) (bucket, object string, err error) {
	trimmed, ok := strings.CutPrefix(gcsURL, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URL: %s", gcsURL)
	}
	bucket, object, _ = strings.Cut(trimmed, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gs:// URL: %s", gcsURL)
	}
	return bucket, object, nil
}
