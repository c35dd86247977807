package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tryout-service/internal/domain"
)

// TryoutClient loads tryouts from the tryout REST API:
//
//	GET {base}/tryout/{id}            tryout metadata
//	GET {base}/tryout/{id}/questions  ordered questions
//
// Both requests run concurrently. There is no retry.
type TryoutClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewTryoutClient(baseURL, token string, timeout time.Duration) *TryoutClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TryoutClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *TryoutClient) LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	var (
		tryout    domain.Tryout
		questions []domain.Question
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(ctx, "/tryout/"+url.PathEscape(tryoutID), &tryout)
	})
	g.Go(func() error {
		return c.get(ctx, "/tryout/"+url.PathEscape(tryoutID)+"/questions", &questions)
	})
	if err := g.Wait(); err != nil {
		return domain.Tryout{}, err
	}

	if tryout.ID == "" {
		tryout.ID = tryoutID
	}
	// The API always sends passingScore; 0 means the author left it unset.
	if tryout.PassingScore != nil && *tryout.PassingScore <= 0 {
		tryout.PassingScore = nil
	}
	tryout.Questions = questions
	tryout.QuestionCount = len(questions)
	return tryout, nil
}

func (c *TryoutClient) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrTryoutNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(unwrapData(body), dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// unwrapData strips a {"data": ...} envelope when the API uses one.
func unwrapData(body []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if _, hasID := envelope["id"]; hasID {
		return body
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return body
}
