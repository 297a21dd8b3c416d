package request

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	"github.com/google/uuid"
)

type Config struct {
	BaseURL string `valid:"url,required"`
}

func New(cfg Config) core.RequestService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &service{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: cfg.BaseURL,
	}
}

// service pulls contested username requests from the platform API in
// sequence order.
type service struct {
	client  *http.Client
	baseURL string
}

type pullResponse struct {
	Requests   []*core.UsernameRequest `json:"requests"`
	NextOffset uint64                  `json:"next_offset"`
}

func (s *service) Pull(ctx context.Context, offset uint64, limit int) ([]*core.UsernameRequest, uint64, error) {
	u, err := url.Parse(s.baseURL + "/v1/username-requests")
	if err != nil {
		return nil, 0, err
	}

	q := u.Query()
	q.Set("offset", strconv.FormatUint(offset, 10))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("pull username requests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("pull username requests: unexpected status %d", resp.StatusCode)
	}

	var body pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode username requests: %w", err)
	}

	for _, r := range body.Requests {
		if r.RequestID == "" {
			// Deterministic, so re-pulling the same page stays idempotent.
			r.RequestID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.Username+":"+r.Identity)).String()
		}
	}

	next := body.NextOffset
	if next < offset {
		next = offset
	}

	return body.Requests, next, nil
}
