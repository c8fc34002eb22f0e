// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gcm reads deployment health metrics from Google Cloud
// Monitoring.
//
// Queries average all points of all matching time series over the last
// ten minutes. An empty result set averages to 0.0 with a nil error;
// callers that need to distinguish "no data" from "zero" must treat the
// two identically, which is what the health-check fallback rules do.
package gcm

import (
	"context"
	"fmt"
	"sort"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/posecoach/posectl/pkg/logging"
)

// queryWindow is how far back each metric query looks.
const queryWindow = 10 * time.Minute

// Client queries averaged metric values for a GCP project.
//
// # Example
//
//	source, err := gcm.New(ctx, "posecoach-prod", "", logger)
//	value, err := source.QueryMetric(ctx,
//	    "custom.googleapis.com/pose_coach/crash_rate",
//	    map[string]string{"version": "2.3.0"})
type Client struct {
	metric    *monitoring.MetricClient
	projectID string
	log       *logging.Logger
}

// New creates a monitoring client for projectID.
//
// # Inputs
//
//   - ctx: Governs credential exchange.
//   - projectID: GCP project holding the custom metrics. Required.
//   - credentialsFile: Service-account key path; empty uses application
//     default credentials.
//   - log: Structured logger. Nil uses the package default.
func New(ctx context.Context, projectID, credentialsFile string, log *logging.Logger) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("gcm: projectID is required")
	}
	if log == nil {
		log = logging.Default()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	metric, err := monitoring.NewMetricClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitoring client: %w", err)
	}
	return &Client{metric: metric, projectID: projectID, log: log}, nil
}

// QueryMetric returns the average value of metricType over the query
// window, restricted to series matching every label.
//
// # Outputs
//
//   - float64: Average of all points across matching series; 0.0 when
//     no series matched.
//   - error: Non-nil only when the query itself failed.
func (c *Client) QueryMetric(ctx context.Context, metricType string, labels map[string]string) (float64, error) {
	now := time.Now()
	req := &monitoringpb.ListTimeSeriesRequest{
		Name:   "projects/" + c.projectID,
		Filter: buildFilter(metricType, labels),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(now.Add(-queryWindow)),
			EndTime:   timestamppb.New(now),
		},
		View: monitoringpb.ListTimeSeriesRequest_FULL,
	}

	var sum float64
	var count int

	it := c.metric.ListTimeSeries(ctx, req)
	for {
		series, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to query metric %s: %w", metricType, err)
		}
		for _, p := range series.Points {
			sum += pointValue(p)
			count++
		}
	}

	if count == 0 {
		c.log.Debug("metric query returned no data", "metric", metricType)
		return 0, nil
	}
	return sum / float64(count), nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.metric.Close()
}

// buildFilter assembles a time-series filter for a metric type and its
// label restrictions. Labels are emitted in sorted order so the filter
// is deterministic.
func buildFilter(metricType string, labels map[string]string) string {
	filter := fmt.Sprintf("metric.type = %q", metricType)

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filter += fmt.Sprintf(" AND metric.labels.%s = %q", k, labels[k])
	}
	return filter
}

// pointValue extracts a numeric value from a point regardless of the
// metric's declared value type.
func pointValue(p *monitoringpb.Point) float64 {
	if p == nil || p.Value == nil {
		return 0
	}
	switch v := p.Value.Value.(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return v.DoubleValue
	case *monitoringpb.TypedValue_Int64Value:
		return float64(v.Int64Value)
	default:
		return 0
	}
}
