package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/wholecell/pipekit/errors"
	"github.com/wholecell/pipekit/logger"
	"github.com/wholecell/pipekit/resilience"
)

const userAgent = "pipekit/0.1.0"

type slackService struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
	retry  resilience.RetryConfig
}

func newSlackService(cfg Config) *slackService {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts

	return &slackService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout()},
		log:    logger.WithComponent("notify"),
		retry:  retry,
	}
}

type sectionBlock struct {
	Type string    `json:"type"`
	Text blockText `json:"text"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	File  struct {
		Permalink string `json:"permalink"`
	} `json:"file"`
}

func (s *slackService) PostMessage(ctx context.Context, message string) error {
	body := map[string]any{
		"channel": s.cfg.Channel,
		"blocks": []sectionBlock{{
			Type: "section",
			Text: blockText{Type: "mrkdwn", Text: ":wave: " + message},
		}},
	}
	_, err := s.call(ctx, "chat.postMessage", body)
	return err
}

func (s *slackService) UploadImage(ctx context.Context, message, filePath, fileName string) error {
	if fileName == "" {
		fileName = filepath.Base(filePath)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("notify: reading %s: %w", filePath, err)
	}

	resp, err := s.upload(ctx, fileName, content)
	if err != nil {
		return err
	}

	body := map[string]any{
		"channel": s.cfg.Channel,
		"text":    ":wave: " + message + "\n" + resp.File.Permalink,
	}
	_, err = s.call(ctx, "chat.postMessage", body)
	return err
}

// call posts a JSON API method with retry on transient failures.
func (s *slackService) call(ctx context.Context, method string, body map[string]any) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("notify: encoding %s request: %w", method, err)
	}
	return resilience.Retry(ctx, s.retry, func() (*apiResponse, error) {
		return s.doRequest(ctx, method, "application/json; charset=utf-8", bytes.NewReader(payload))
	})
}

// upload posts a file as multipart form data with retry.
func (s *slackService) upload(ctx context.Context, fileName string, content []byte) (*apiResponse, error) {
	return resilience.Retry(ctx, s.retry, func() (*apiResponse, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if err := mw.WriteField("title", fileName); err != nil {
			return nil, fmt.Errorf("notify: building upload form: %w", err)
		}
		if err := mw.WriteField("filename", fileName); err != nil {
			return nil, fmt.Errorf("notify: building upload form: %w", err)
		}
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			return nil, fmt.Errorf("notify: building upload form: %w", err)
		}
		if _, err := fw.Write(content); err != nil {
			return nil, fmt.Errorf("notify: building upload form: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("notify: building upload form: %w", err)
		}
		return s.doRequest(ctx, "files.upload", mw.FormDataContentType(), &buf)
	})
}

func (s *slackService) doRequest(ctx context.Context, method, contentType string, body io.Reader) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("notify: building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.cfg.BotToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.ExternalService("slack", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.ExternalService("slack", fmt.Errorf("%s returned status %d", method, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.AppError{
			Code:    errors.ErrCodeExternalService,
			Message: fmt.Sprintf("slack %s returned status %d", method, resp.StatusCode),
		}
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, errors.ExternalService("slack", fmt.Errorf("decoding %s response: %w", method, err))
	}
	if !apiResp.OK {
		return nil, &errors.AppError{
			Code:    errors.ErrCodeExternalService,
			Message: fmt.Sprintf("slack %s failed: %s", method, apiResp.Error),
		}
	}
	return &apiResp, nil
}
