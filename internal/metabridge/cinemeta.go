package metabridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
)

const DefaultCinemetaURL = "https://v3-cinemeta.strem.io"

// Cinemeta 查询 Stremio 公共元数据服务（只支持 IMDb id）。
type Cinemeta struct {
	baseURL string
	client  jsonClient
}

func NewCinemeta(baseURL string, hc *http.Client, logger zerolog.Logger) *Cinemeta {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultCinemetaURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Cinemeta{
		baseURL: baseURL,
		client:  jsonClient{http: hc, logger: logger.With().Str("component", "cinemeta").Logger()},
	}
}

func (c *Cinemeta) Name() string { return "cinemeta" }

type cinemetaResponse struct {
	Meta *struct {
		Name        string          `json:"name"`
		Year        json.RawMessage `json:"year"`
		ReleaseInfo string          `json:"releaseInfo"`
	} `json:"meta"`
}

// Lookup 实现 GET {base}/meta/movie/{tt}.json。
func (c *Cinemeta) Lookup(ctx context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error) {
	if ref.Kind != domain.RefIMDb {
		return domain.SearchQuery{}, false, ErrUnsupportedRef
	}
	var resp cinemetaResponse
	err := c.client.doRequest(ctx, c.baseURL+"/meta/movie/"+ref.ID+".json", nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return domain.SearchQuery{}, false, nil
	}
	if err != nil {
		return domain.SearchQuery{}, false, err
	}
	if resp.Meta == nil || strings.TrimSpace(resp.Meta.Name) == "" {
		return domain.SearchQuery{}, false, nil
	}

	// year 在不同条目里可能是数字或字符串。
	year := parseYear(strings.Trim(string(resp.Meta.Year), `"`))
	if year == 0 {
		year = parseYear(resp.Meta.ReleaseInfo)
	}
	return domain.SearchQuery{Title: strings.TrimSpace(resp.Meta.Name), Year: year}, true, nil
}
