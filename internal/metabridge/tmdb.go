package metabridge

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
)

const DefaultTMDBURL = "https://api.themoviedb.org"

// TMDB 查询 themoviedb.org v3 接口。没有 API key 时不可用。
type TMDB struct {
	baseURL string
	apiKey  string
	client  jsonClient
}

func NewTMDB(baseURL, apiKey string, hc *http.Client, logger zerolog.Logger) *TMDB {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultTMDBURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &TMDB{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		client:  jsonClient{http: hc, logger: logger.With().Str("component", "tmdb").Logger()},
	}
}

func (t *TMDB) Name() string { return "tmdb" }

func (t *TMDB) IsConfigured() bool { return t != nil && t.apiKey != "" }

type tmdbMovie struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type tmdbFindResponse struct {
	MovieResults []tmdbMovie `json:"movie_results"`
}

// Lookup 支持两种 id：
// - RefTMDB：GET {base}/3/movie/{id}
// - RefIMDb：GET {base}/3/find/{tt}?external_source=imdb_id（Cinemeta 未命中时的兜底）
func (t *TMDB) Lookup(ctx context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error) {
	if !t.IsConfigured() {
		return domain.SearchQuery{}, false, ErrAPIKeyMissing
	}
	params := url.Values{}
	params.Set("api_key", t.apiKey)

	var m tmdbMovie
	switch ref.Kind {
	case domain.RefTMDB:
		err := t.client.doRequest(ctx, t.baseURL+"/3/movie/"+ref.ID, params, &m)
		if errors.Is(err, ErrNotFound) {
			return domain.SearchQuery{}, false, nil
		}
		if err != nil {
			return domain.SearchQuery{}, false, err
		}
	case domain.RefIMDb:
		params.Set("external_source", "imdb_id")
		var resp tmdbFindResponse
		err := t.client.doRequest(ctx, t.baseURL+"/3/find/"+ref.ID, params, &resp)
		if errors.Is(err, ErrNotFound) {
			return domain.SearchQuery{}, false, nil
		}
		if err != nil {
			return domain.SearchQuery{}, false, err
		}
		if len(resp.MovieResults) == 0 {
			return domain.SearchQuery{}, false, nil
		}
		m = resp.MovieResults[0]
	default:
		return domain.SearchQuery{}, false, ErrUnsupportedRef
	}

	title := strings.TrimSpace(m.Title)
	if title == "" {
		return domain.SearchQuery{}, false, nil
	}
	return domain.SearchQuery{Title: title, Year: parseYear(m.ReleaseDate)}, true, nil
}
