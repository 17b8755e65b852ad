package addon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/provider/puzzle"
)

type handler struct {
	svc *Service
}

// NewRouter 挂载 addon 的全部路由。
func NewRouter(svc *Service, log zerolog.Logger) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer, cors)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/configure", http.StatusFound)
	})
	r.Get("/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, NewManifest(false))
	})
	r.Get("/configure", h.configurePage)
	r.Post("/configure", h.configureSubmit)

	r.Route("/{token}", func(r chi.Router) {
		r.Get("/manifest.json", h.manifest)
		r.Get("/configure", h.configurePage)
		r.Get("/catalog/movie/{catalog}", h.catalog)
		r.Get("/catalog/movie/{catalog}/{extra}", h.catalog)
		r.Get("/meta/movie/{id}", h.meta)
		r.Get("/stream/movie/{id}", h.stream)
	})
	return r
}

func (h *handler) credential(w http.ResponseWriter, r *http.Request) (Credential, bool) {
	cred, err := DecodeToken(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return Credential{}, false
	}
	return cred, true
}

func (h *handler) manifest(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.credential(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewManifest(true))
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	if strings.TrimSuffix(chi.URLParam(r, "catalog"), ".json") != CatalogID {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "未知 catalog"})
		return
	}
	term := parseExtra(chi.URLParam(r, "extra"))[searchExtra]

	metas, err := h.svc.Catalog(r.Context(), cred, term)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Metas: metas})
}

func (h *handler) meta(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Meta(r.Context(), cred, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metaResponse{Meta: m})
}

func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	streams, err := h.svc.Stream(r.Context(), cred, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streamsResponse{Streams: streams})
}

func pathID(r *http.Request) string {
	id := strings.TrimSuffix(chi.URLParam(r, "id"), ".json")
	if u, err := url.PathUnescape(id); err == nil {
		id = u
	}
	return id
}

// parseExtra 解析 Stremio 的 extra 段：search=the%20thing&skip=0.json
func parseExtra(extra string) map[string]string {
	out := make(map[string]string, 2)
	extra = strings.TrimSuffix(extra, ".json")
	if extra == "" {
		return out
	}
	for _, kv := range strings.Split(extra, "&") {
		k, v, _ := strings.Cut(kv, "=")
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError 把凭据类错误映射为 400；其余错误不应到达这里，统一 500。
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingCredential), errors.Is(err, puzzle.ErrMissingCookie):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "missing_credential"})
	case errors.Is(err, ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_token"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
