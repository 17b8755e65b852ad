package addon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xybydy/go-stremio/types"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/provider"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

type stubSite struct {
	results map[string][]domain.Candidate
	streams map[string]string
	films   map[string]domain.FilmMeta

	searches []domain.SearchQuery
	probed   []string
}

func (s *stubSite) Search(_ context.Context, q domain.SearchQuery) ([]domain.Candidate, error) {
	s.searches = append(s.searches, q)
	return s.results[q.Term()], nil
}

func (s *stubSite) ExtractStream(_ context.Context, sl string) (string, error) {
	if u, ok := s.streams[sl]; ok {
		return u, nil
	}
	return "", &provider.RemoteUnavailableError{Op: "film", Err: &provider.HTTPStatusError{StatusCode: 404}}
}

func (s *stubSite) Probe(ctx context.Context, title string, year int) (domain.Candidate, bool) {
	g := slug.Guess(title, year)
	s.probed = append(s.probed, g)
	u, err := s.ExtractStream(ctx, g)
	if err != nil || u == "" {
		return domain.Candidate{}, false
	}
	return domain.Candidate{Slug: g, Title: title, Year: year, StreamURL: u}, true
}

func (s *stubSite) FetchMeta(_ context.Context, sl string) (domain.FilmMeta, error) {
	if fm, ok := s.films[sl]; ok {
		return fm, nil
	}
	return domain.FilmMeta{}, &provider.RemoteUnavailableError{Op: "film", Err: errors.New("HTTP 404")}
}

type stubBridge map[string]domain.SearchQuery

func (b stubBridge) Lookup(_ context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error) {
	q, ok := b[ref.ID]
	return q, ok, nil
}

type testEnv struct {
	site    *stubSite
	cookies []string
	srv     *httptest.Server
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{site: &stubSite{
		results: map[string][]domain.Candidate{
			"The Thing 1982": {{Slug: "the-thing-1982", Title: "The Thing", Year: 1982, Poster: "https://img.test/p.jpg"}},
		},
		streams: map[string]string{
			"the-thing-1982":    "https://cdn.test/the-thing.m3u8",
			"obscure-film-1975": "https://cdn.test/obscure.m3u8",
		},
		films: map[string]domain.FilmMeta{
			"the-thing-1982": {Slug: "the-thing-1982", Title: "The Thing", Year: 1982, Description: "Antarctica.", Genres: []string{"Horror"}},
		},
	}}
	dial := func(cookie string) (Site, error) {
		env.cookies = append(env.cookies, cookie)
		return env.site, nil
	}
	bridge := stubBridge{"tt0084787": {Title: "The Thing", Year: 1982}}
	env.srv = httptest.NewServer(NewRouter(NewService(dial, bridge), zerolog.Nop()))
	t.Cleanup(env.srv.Close)

	tok, err := EncodeToken(Credential{Cookie: "session=abc"})
	require.NoError(t, err)
	env.token = tok
	return env
}

func (env *testEnv) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(env.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestToken_RoundTrip(t *testing.T) {
	tok, err := EncodeToken(Credential{Cookie: " session=abc; remember=1 "})
	require.NoError(t, err)
	assert.NotContains(t, tok, "=")
	assert.NotContains(t, tok, "/")

	c, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "session=abc; remember=1", c.Cookie)

	_, err = EncodeToken(Credential{})
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = DecodeToken("!!!")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = DecodeToken("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestRouter_HealthAndManifest(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var m types.Manifest
	resp = env.get(t, "/manifest.json", &m)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, m.BehaviorHints.ConfigurationRequired)
	require.Len(t, m.ResourceItems, 3)
	assert.Equal(t, "catalog", m.ResourceItems[0].Name)

	m = types.Manifest{}
	env.get(t, "/"+env.token+"/manifest.json", &m)
	assert.False(t, m.BehaviorHints.ConfigurationRequired)
	require.Len(t, m.Catalogs, 1)
	assert.Equal(t, CatalogID, m.Catalogs[0].ID)
}

func TestManifest_WireShape(t *testing.T) {
	b, err := json.Marshal(NewManifest(true))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, []any{"puzzle:", "tt", "tmdb:"}, raw["idPrefixes"])
	assert.Equal(t, []any{"movie"}, raw["types"])

	res, ok := raw["resources"].([]any)
	require.True(t, ok, "resources 应为数组")
	require.Len(t, res, 3)
	stream, ok := res[2].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stream", stream["name"])

	cats, ok := raw["catalogs"].([]any)
	require.True(t, ok)
	require.Len(t, cats, 1)
	extra := cats[0].(map[string]any)["extra"].([]any)
	assert.Equal(t, "search", extra[0].(map[string]any)["name"])
	assert.Equal(t, true, extra[0].(map[string]any)["isRequired"])
}

func TestStream_WireShape(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/" + env.token + "/stream/movie/puzzle:the-thing-1982.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw struct {
		Streams []map[string]any `json:"streams"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Len(t, raw.Streams, 1)
	s := raw.Streams[0]
	assert.Equal(t, "Puzzle", s["name"])
	assert.Equal(t, "https://cdn.test/the-thing.m3u8", s["url"])
	assert.Equal(t, "The Thing (1982)", s["title"])
	assert.Equal(t, map[string]any{"bingeGroup": "puzzlestream-hls"}, s["behaviorHints"])
}

func TestRouter_CredentialErrors(t *testing.T) {
	env := newTestEnv(t)

	var e errorResponse
	resp := env.get(t, "/not-base64!/stream/movie/tt0084787.json", &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_token", e.Code)

	empty := "eyJjb29raWUiOiIifQ" // {"cookie":""}
	e = errorResponse{}
	resp = env.get(t, "/"+empty+"/catalog/movie/puzzle-search/search=heat.json", &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_credential", e.Code)
	assert.Empty(t, env.cookies)
}

func TestRouter_Preflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/"+env.token+"/manifest.json", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCatalog_SlugLiteralSkipsSearch(t *testing.T) {
	env := newTestEnv(t)

	var got catalogResponse
	env.get(t, "/"+env.token+"/catalog/movie/puzzle-search/search=some-movie-2020.json", &got)

	assert.Equal(t, []types.MetaPreviewItem{{ID: "puzzle:some-movie-2020", Type: "movie", Name: "Some Movie", ReleaseInfo: "2020"}}, got.Metas)
	assert.Empty(t, env.site.searches)
	assert.Equal(t, []string{"session=abc"}, env.cookies)
}

func TestCatalog_SearchNormalizesTerm(t *testing.T) {
	env := newTestEnv(t)

	var got catalogResponse
	env.get(t, "/"+env.token+"/catalog/movie/puzzle-search/search="+url.PathEscape("The Thing 1982")+".json", &got)

	assert.Equal(t, []domain.SearchQuery{{Title: "The Thing", Year: 1982}}, env.site.searches)
	assert.Equal(t, []types.MetaPreviewItem{{ID: "puzzle:the-thing-1982", Type: "movie", Name: "The Thing", Poster: "https://img.test/p.jpg", ReleaseInfo: "1982"}}, got.Metas)
	assert.Empty(t, env.site.probed)
}

func TestCatalog_EmptySearchProbes(t *testing.T) {
	env := newTestEnv(t)

	var got catalogResponse
	env.get(t, "/"+env.token+"/catalog/movie/puzzle-search/search=Obscure%20Film%201975.json", &got)

	assert.Equal(t, []string{"obscure-film-1975"}, env.site.probed)
	require.Len(t, got.Metas, 1)
	assert.Equal(t, "puzzle:obscure-film-1975", got.Metas[0].ID)
}

func TestCatalog_NoYearNoProbe(t *testing.T) {
	env := newTestEnv(t)

	var got catalogResponse
	env.get(t, "/"+env.token+"/catalog/movie/puzzle-search/search=Obscure%20Film.json", &got)

	assert.NotNil(t, got.Metas)
	assert.Empty(t, got.Metas)
	assert.Empty(t, env.site.probed)
}

func TestCatalog_UnknownCatalog(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/"+env.token+"/catalog/movie/top/search=x.json", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMeta(t *testing.T) {
	env := newTestEnv(t)

	var got metaResponse
	env.get(t, "/"+env.token+"/meta/movie/puzzle:the-thing-1982.json", &got)
	require.NotNil(t, got.Meta)
	assert.Equal(t, "puzzle:the-thing-1982", got.Meta.ID)
	assert.Equal(t, "The Thing", got.Meta.Name)
	assert.Equal(t, []string{"Horror"}, got.Meta.Genres)

	got = metaResponse{}
	env.get(t, "/"+env.token+"/meta/movie/tt0084787.json", &got)
	require.NotNil(t, got.Meta)
	assert.Equal(t, "tt0084787", got.Meta.ID, "外部 id 的 meta 保留请求 id")
	assert.Equal(t, "Antarctica.", got.Meta.Description)

	got = metaResponse{}
	resp := env.get(t, "/"+env.token+"/meta/movie/puzzle:missing-2000.json", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, got.Meta)
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)

	var got streamsResponse
	env.get(t, "/"+env.token+"/stream/movie/tt0084787.json", &got)
	require.Len(t, got.Streams, 1)
	assert.Equal(t, "https://cdn.test/the-thing.m3u8", got.Streams[0].URL)
	assert.Equal(t, "The Thing (1982)", got.Streams[0].Title)

	got = streamsResponse{}
	env.get(t, "/"+env.token+"/stream/movie/puzzle:obscure-film-1975.json", &got)
	require.Len(t, got.Streams, 1)
	assert.True(t, strings.HasSuffix(got.Streams[0].URL, ".m3u8"))

	got = streamsResponse{}
	resp := env.get(t, "/"+env.token+"/stream/movie/tt9999999.json", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, got.Streams)
	assert.Empty(t, got.Streams, "没有结果时返回空列表而不是错误")
}

func TestConfigure_GeneratesInstallLink(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.PostForm(env.srv.URL+"/configure", url.Values{"cookie": {"session=xyz"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)

	m := regexp.MustCompile(`/([A-Za-z0-9_-]+)/manifest\.json`).FindStringSubmatch(body)
	require.NotNil(t, m, body)
	c, err := DecodeToken(m[1])
	require.NoError(t, err)
	assert.Equal(t, "session=xyz", c.Cookie)
	assert.Contains(t, body, "stremio://")

	resp2, err := http.PostForm(env.srv.URL+"/configure", url.Values{"cookie": {"  "}})
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestParseExtra(t *testing.T) {
	assert.Equal(t, map[string]string{"search": "the thing", "skip": "20"}, parseExtra("search=the%20thing&skip=20.json"))
	assert.Empty(t, parseExtra(""))
}
