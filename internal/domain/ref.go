package domain

import (
	"regexp"
	"strings"
)

// InternalPrefix 是内部引用的固定前缀：puzzle:<slug>。
const InternalPrefix = "puzzle:"

type RefKind string

const (
	RefInternal RefKind = "internal"
	RefIMDb     RefKind = "imdb"
	RefTMDB     RefKind = "tmdb"
	RefOther    RefKind = "other"
)

// ContentRef 是调用方使用的 id 空间。
// 只有 RefInternal 可以直接解析；其余都要先经过元数据桥换成 (title, year)。
type ContentRef struct {
	Raw  string
	Kind RefKind
	// Slug 仅在 RefInternal 时非空。
	Slug string
	// ID 是去掉前缀后的外部 id（例如 tt0084787 / 1091）。
	ID string
}

var (
	imdbRE = regexp.MustCompile(`^tt[0-9]+$`)
	tmdbRE = regexp.MustCompile(`^tmdb:([0-9]+)$`)
)

// ParseContentRef 不会失败：无法识别的 id 归为 RefOther，原样交给元数据桥。
// 剧集形式的 id（tt123:1:2）只取第一段。
func ParseContentRef(raw string) ContentRef {
	raw = strings.TrimSpace(raw)
	ref := ContentRef{Raw: raw, Kind: RefOther, ID: raw}

	if strings.HasPrefix(raw, InternalPrefix) {
		ref.Kind = RefInternal
		ref.Slug = strings.TrimSpace(strings.TrimPrefix(raw, InternalPrefix))
		ref.ID = ref.Slug
		return ref
	}
	if m := tmdbRE.FindStringSubmatch(raw); m != nil {
		ref.Kind = RefTMDB
		ref.ID = m[1]
		return ref
	}
	head, _, _ := strings.Cut(raw, ":")
	if imdbRE.MatchString(head) {
		ref.Kind = RefIMDb
		ref.ID = head
	}
	return ref
}

// InternalID 把 slug 编码为对外 id。
func InternalID(slug string) string { return InternalPrefix + slug }
