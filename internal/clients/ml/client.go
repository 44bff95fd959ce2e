package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thoraxlab/thorax-backend/internal/pkg/httpx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/utils"
)

// Client talks to the remote scoring service that classifies extracted
// study images for pathology.
type Client interface {
	PredictStudy(ctx context.Context, studyID string, imagePaths []string) (*Prediction, error)
	HealthCheck(ctx context.Context) error
}

// Prediction is the aggregate classification result for one study.
type Prediction struct {
	MeanProb        float64  `json:"mean_prob"`
	PredictedClass  int      `json:"predicted_class"`
	CI95            string   `json:"ci_95"`
	NFrames         int      `json:"n_frames"`
	FracPositive    float64  `json:"frac_positive"`
	PathologyImages []string `json:"pathology_images"`
	Error           string   `json:"error,omitempty"`
}

type predictRequest struct {
	ImagePaths []string `json:"image_paths"`
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(baseLog *logger.Logger) Client {
	clientLog := baseLog.With("client", "MLClient")

	baseURL := utils.GetEnv("THORAX_ML_SERVICE_URL", "http://localhost:8001", baseLog)
	// Scoring a full study can legitimately take a long time.
	timeoutSec := utils.GetEnvAsInt("THORAX_ML_TIMEOUT_SECONDS", 3600, baseLog)
	maxRetries := utils.GetEnvAsInt("THORAX_ML_MAX_RETRIES", 2, baseLog)

	return &client{
		log:        clientLog,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}
}

type mlHTTPError struct {
	StatusCode int
	Body       string
}

func (e *mlHTTPError) Error() string {
	return fmt.Sprintf("ml service http %d: %s", e.StatusCode, e.Body)
}

func (e *mlHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) PredictStudy(ctx context.Context, studyID string, imagePaths []string) (*Prediction, error) {
	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("no images to score for study %s", studyID)
	}

	var pred Prediction
	path := "/predict/study/" + studyID
	if err := c.do(ctx, http.MethodPost, path, predictRequest{ImagePaths: imagePaths}, &pred); err != nil {
		return nil, err
	}
	if pred.Error != "" {
		return nil, fmt.Errorf("scoring service reported classification failure: %s", pred.Error)
	}

	c.log.Info("Study scored",
		"study_id", studyID,
		"mean_prob", pred.MeanProb,
		"predicted_class", pred.PredictedClass,
		"n_frames", pred.NFrames)
	return &pred, nil
}

func (c *client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scoring service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scoring service unhealthy: http %d", resp.StatusCode)
	}
	return nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &mlHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ml service decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("ML request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("ml request failed after %d attempts", c.maxRetries+1)
}
