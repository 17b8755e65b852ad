package addon

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

var configureTmpl = template.Must(template.New("configure").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>Puzzle Movies · 配置</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<h1>Puzzle Movies</h1>
<p>粘贴登录 puzzle-movies 后浏览器里的 Cookie 请求头（例如 <code>session=…; remember=…</code>）。</p>
<form method="post" action="/configure">
  <textarea name="cookie" rows="4" cols="80" required></textarea>
  <p><button type="submit">生成安装链接</button></p>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .ManifestURL}}
<p>安装链接：</p>
<p><a href="{{.StremioURL}}">在 Stremio 中安装</a></p>
<p><code>{{.ManifestURL}}</code></p>
{{end}}
</body>
</html>
`))

type configureView struct {
	Error       string
	ManifestURL string
	StremioURL  template.URL
}

func (h *handler) configurePage(w http.ResponseWriter, r *http.Request) {
	renderConfigure(w, r, http.StatusOK, configureView{})
}

func (h *handler) configureSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderConfigure(w, r, http.StatusBadRequest, configureView{Error: "表单无法解析"})
		return
	}
	token, err := EncodeToken(Credential{Cookie: r.PostForm.Get("cookie")})
	if err != nil {
		renderConfigure(w, r, http.StatusBadRequest, configureView{Error: err.Error()})
		return
	}

	host := requestHost(r)
	manifest := requestScheme(r) + "://" + host + "/" + token + "/manifest.json"
	renderConfigure(w, r, http.StatusOK, configureView{
		ManifestURL: manifest,
		StremioURL:  template.URL("stremio://" + host + "/" + token + "/manifest.json"),
	})
}

func renderConfigure(w http.ResponseWriter, r *http.Request, status int, v configureView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := configureTmpl.Execute(w, v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("渲染配置页失败")
	}
}

func requestScheme(r *http.Request) string {
	if p := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); p != "" {
		return strings.ToLower(strings.Split(p, ",")[0])
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func requestHost(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); h != "" {
		return strings.Split(h, ",")[0]
	}
	return r.Host
}
