package addon

import (
	"github.com/xybydy/go-stremio/types"
)

const (
	ContentTypeMovie = "movie"
	CatalogID        = "puzzle-search"
	searchExtra      = "search"
)

var idPrefixes = []string{"puzzle:", "tt", "tmdb:"}

// Stream 在 types.StreamItem 之外补上客户端分组需要的 name/behaviorHints。
type Stream struct {
	types.StreamItem
	Name          string               `json:"name,omitempty"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`
}

type StreamBehaviorHints struct {
	NotWebReady bool   `json:"notWebReady,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
}

type catalogResponse struct {
	Metas []types.MetaPreviewItem `json:"metas"`
}

type metaResponse struct {
	Meta *types.MetaItem `json:"meta"`
}

type streamsResponse struct {
	Streams []Stream `json:"streams"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewManifest 返回 addon manifest；configured=false 时提示客户端先打开配置页。
func NewManifest(configured bool) types.Manifest {
	return types.Manifest{
		ID:          "community.puzzlestream",
		Version:     "1.0.0",
		Name:        "Puzzle Movies",
		Description: "通过你自己的 puzzle-movies 账号 cookie 搜索并播放 HLS 流。",
		ResourceItems: []types.ResourceItem{
			{Name: "catalog", Types: []string{ContentTypeMovie}},
			{Name: "meta", Types: []string{ContentTypeMovie}, IDprefixes: idPrefixes},
			{Name: "stream", Types: []string{ContentTypeMovie}, IDprefixes: idPrefixes},
		},
		Types: []string{ContentTypeMovie},
		Catalogs: []types.CatalogItem{{
			Type:  ContentTypeMovie,
			ID:    CatalogID,
			Name:  "Puzzle Movies",
			Extra: []types.ExtraItem{{Name: searchExtra, IsRequired: true}},
		}},
		IDprefixes: idPrefixes,
		BehaviorHints: types.BehaviorHints{
			Configurable:          true,
			ConfigurationRequired: !configured,
		},
	}
}
