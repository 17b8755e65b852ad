package addon

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrMissingCredential 表示请求没有携带 cookie（token 为空或 cookie 为空）。
	ErrMissingCredential = errors.New("缺少站点凭据")
	// ErrInvalidToken 表示 token 无法解码。
	ErrInvalidToken = errors.New("凭据 token 无效")
)

// Credential 是编码进 addon URL 的调用方凭据。
type Credential struct {
	Cookie string `json:"cookie"`
}

// EncodeToken 把凭据编码为 URL path 安全的 token（base64url(JSON)，无填充）。
func EncodeToken(c Credential) (string, error) {
	c.Cookie = strings.TrimSpace(c.Cookie)
	if c.Cookie == "" {
		return "", ErrMissingCredential
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeToken 是 EncodeToken 的逆操作；兼容带 "=" 填充的 token。
func DecodeToken(token string) (Credential, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return Credential{}, ErrMissingCredential
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Credential{}, ErrInvalidToken
	}
	var c Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return Credential{}, ErrInvalidToken
	}
	c.Cookie = strings.TrimSpace(c.Cookie)
	if c.Cookie == "" {
		return Credential{}, ErrMissingCredential
	}
	return c, nil
}
