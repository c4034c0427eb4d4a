package logclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"golang.org/x/time/rate"
)

// Client is the pipeline's view of the match-record index.
type Client interface {
	// FetchByID retrieves a full record. Returns ErrNotFound, ErrInvalidRecord,
	// or a TransientError as appropriate.
	FetchByID(ctx context.Context, id sharedtypes.RecordID) (*Record, error)

	// Search lists recent records involving the given players, newest first.
	Search(ctx context.Context, players []sharedtypes.GameID, limit int) ([]CandidateSummary, error)
}

// HTTPClient implements Client against the logs service's JSON API. All
// requests pass through a shared rate limiter; the service bans aggressive
// pollers.
type HTTPClient struct {
	baseURL    string
	uploaderID string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient from config.
func NewHTTPClient(cfg config.LogServiceConfig, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		uploaderID: cfg.UploaderID,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		logger:     logger,
	}
}

func (c *HTTPClient) FetchByID(ctx context.Context, id sharedtypes.RecordID) (*Record, error) {
	var resp recordResponse
	endpoint := fmt.Sprintf("%s/log/%d", c.baseURL, id)
	if err := c.getJSON(ctx, "fetch", endpoint, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, ErrInvalidRecord
	}

	rec := &Record{
		ID:        id,
		Map:       resp.Info.Map,
		Title:     resp.Info.Title,
		StartedAt: time.Unix(resp.Info.Date, 0).UTC(),
		Duration:  time.Duration(resp.Info.TotalLength) * time.Second,
		RedScore:  resp.Teams.Red.Score,
		BlueScore: resp.Teams.Blue.Score,
		Players:   make(map[sharedtypes.GameID]PlayerRecord, len(resp.Players)),
	}

	for gameID, p := range resp.Players {
		stats := make([]sharedtypes.ClassStats, 0, len(p.ClassStats))
		for _, cs := range p.ClassStats {
			stats = append(stats, sharedtypes.ClassStats{
				Class:  cs.Type,
				Kills:  cs.Kills,
				Deaths: cs.Deaths,
				Damage: cs.Damage,
				Played: time.Duration(cs.TotalTime) * time.Second,
			})
		}
		rec.Players[sharedtypes.GameID(gameID)] = PlayerRecord{
			Team:  teamFromWire(p.Team),
			Stats: stats,
		}
	}

	return rec, nil
}

func (c *HTTPClient) Search(ctx context.Context, players []sharedtypes.GameID, limit int) ([]CandidateSummary, error) {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = string(p)
	}

	q := url.Values{}
	q.Set("player", strings.Join(ids, ","))
	q.Set("limit", strconv.Itoa(limit))
	if c.uploaderID != "" {
		q.Set("uploader", c.uploaderID)
	}

	var resp searchResponse
	endpoint := fmt.Sprintf("%s/log?%s", c.baseURL, q.Encode())
	if err := c.getJSON(ctx, "search", endpoint, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &TransientError{Op: "search", Err: fmt.Errorf("service reported failure")}
	}

	summaries := make([]CandidateSummary, 0, len(resp.Logs))
	for _, l := range resp.Logs {
		summaries = append(summaries, CandidateSummary{
			ID:          sharedtypes.RecordID(l.ID),
			StartedAt:   time.Unix(l.Date, 0).UTC(),
			Map:         l.Map,
			Title:       l.Title,
			PlayerCount: l.Players,
		})
	}
	return summaries, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, op, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "logs service returned non-200",
			attr.String("op", op),
			attr.Int("status", resp.StatusCode),
		)
		return &TransientError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Truncated or garbled bodies come from the same place connection
		// drops do; retry next sweep.
		return &TransientError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func teamFromWire(team string) sharedtypes.TeamColor {
	if strings.EqualFold(team, "Blue") {
		return sharedtypes.TeamBlue
	}
	return sharedtypes.TeamRed
}
