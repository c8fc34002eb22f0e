// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package quality enforces the release quality gates: code coverage,
// complexity, duplication, security and maintainability ratings,
// vulnerability count, APK size, and DEX method count.
//
// Static-analysis measures come from SonarCloud; coverage can also be
// derived locally from Jacoco XML reports when no SonarCloud token is
// available. Build metrics are read from the APK on disk. Only critical
// gates (coverage, security rating, vulnerabilities, method count)
// block a release; the rest produce warnings.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/posecoach/posectl/pkg/logging"
)

// =============================================================================
// SONARCLOUD CLIENT
// =============================================================================

// HTTPDoer is the subset of http.Client the Sonar client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Measures are the SonarCloud metrics the gates evaluate. Ratings are
// numeric: A=1 through E=5.
type Measures struct {
	Coverage               float64
	Complexity             float64
	DuplicatedLinesDensity float64
	SecurityRating         float64
	MaintainabilityRating  float64
	Vulnerabilities        float64
	LinesOfCode            float64
}

// SonarConfig configures the SonarCloud client.
type SonarConfig struct {
	// BaseURL of the SonarCloud instance. Default: "https://sonarcloud.io".
	BaseURL string

	// ProjectKey identifies the analyzed project. Default: "pose-coach-android".
	ProjectKey string

	// Token authenticates the measures request. Empty disables the
	// client; callers fall back to local coverage.
	Token string
}

// Normalize fills zero-valued fields with their defaults.
func (c *SonarConfig) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = "https://sonarcloud.io"
	}
	if c.ProjectKey == "" {
		c.ProjectKey = "pose-coach-android"
	}
}

// SonarClient fetches quality measures from SonarCloud.
type SonarClient struct {
	cfg  SonarConfig
	http HTTPDoer
	log  *logging.Logger
}

// NewSonarClient creates a SonarCloud client. A nil doer uses a
// 30-second http.Client.
func NewSonarClient(cfg SonarConfig, doer HTTPDoer, log *logging.Logger) *SonarClient {
	cfg.Normalize()
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logging.Default()
	}
	return &SonarClient{cfg: cfg, http: doer, log: log}
}

// measuresResponse mirrors the api/measures/component wire format.
type measuresResponse struct {
	Component struct {
		Measures []struct {
			Metric string `json:"metric"`
			Value  string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

// sonarMetricKeys are the metrics requested from SonarCloud.
var sonarMetricKeys = []string{
	"coverage",
	"duplicated_lines_density",
	"complexity",
	"security_rating",
	"maintainability_rating",
	"vulnerabilities",
	"ncloc",
}

// FetchMeasures retrieves the project's current measures.
//
// # Outputs
//
//   - Measures: Parsed metric values; metrics absent from the response
//     stay zero.
//   - error: Non-nil for transport failures or a non-200 response.
func (c *SonarClient) FetchMeasures(ctx context.Context) (Measures, error) {
	endpoint := fmt.Sprintf("%s/api/measures/component", c.cfg.BaseURL)
	params := url.Values{}
	params.Set("component", c.cfg.ProjectKey)
	params.Set("metricKeys", strings.Join(sonarMetricKeys, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Measures{}, fmt.Errorf("failed to build sonar request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Measures{}, fmt.Errorf("sonar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Measures{}, fmt.Errorf("sonar API error: %d - %s", resp.StatusCode, string(body))
	}

	var decoded measuresResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Measures{}, fmt.Errorf("failed to decode sonar response: %w", err)
	}

	var m Measures
	for _, measure := range decoded.Component.Measures {
		value := parseMetricValue(measure.Metric, measure.Value)
		switch measure.Metric {
		case "coverage":
			m.Coverage = value
		case "duplicated_lines_density":
			m.DuplicatedLinesDensity = value
		case "complexity":
			m.Complexity = value
		case "security_rating":
			m.SecurityRating = value
		case "maintainability_rating":
			m.MaintainabilityRating = value
		case "vulnerabilities":
			m.Vulnerabilities = value
		case "ncloc":
			m.LinesOfCode = value
		}
	}

	c.log.Info("fetched sonar measures",
		"project", c.cfg.ProjectKey,
		"coverage", m.Coverage,
		"vulnerabilities", m.Vulnerabilities)
	return m, nil
}

// ratingValues maps SonarCloud letter ratings to their numeric form.
var ratingValues = map[string]float64{
	"A": 1, "B": 2, "C": 3, "D": 4, "E": 5,
}

// parseMetricValue converts one wire value. Ratings arrive as either a
// letter or a numeric string depending on the endpoint version; unknown
// rating values degrade to the worst rating rather than the best.
func parseMetricValue(metric, value string) float64 {
	isRating := metric == "security_rating" || metric == "maintainability_rating"
	if isRating {
		if v, ok := ratingValues[value]; ok {
			return v
		}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		if isRating {
			return 5
		}
		return 0
	}
	return v
}

// RatingLetter converts a numeric rating back to its letter form.
func RatingLetter(rating float64) string {
	letters := []string{"A", "B", "C", "D", "E"}
	i := int(rating) - 1
	if i < 0 || i >= len(letters) {
		return "E"
	}
	return letters[i]
}
