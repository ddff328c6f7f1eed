// Package api 是 feedkit 的 HTTP 外壳：信息流检索与标记已读两个核心操作，
// 加兴趣列表查询。分页参数在这一层归一化（page < 1 → 1，
// page_size 越界 → 20），核心假定入参已校验。
package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
)

// FeedService 是 HTTP 层对信息流核心的依赖。
type FeedService interface {
	GetFeed(ctx context.Context, userID int64, page, pageSize int, useCache bool) (*core.FeedPage, error)
	MarkSeen(ctx context.Context, userID, postID int64) error
	ListInterests(ctx context.Context) ([]*core.Interest, error)
}

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// Server 是 HTTP 服务。
type Server struct {
	svc  FeedService
	auth Authenticator
	log  zerolog.Logger

	defaultPageSize int
	maxPageSize     int
	limiter         *tokenRateLimiter
}

// ServerOption 配置 Server 的可选项。
type ServerOption func(*Server)

// WithPageSizes 设置默认页大小与页大小上限。
func WithPageSizes(def, max int) ServerOption {
	return func(s *Server) {
		if def > 0 {
			s.defaultPageSize = def
		}
		if max > 0 {
			s.maxPageSize = max
		}
	}
}

// WithRateLimit 启用每 token 限流（每秒 rps 个请求，突发 burst）。
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newTokenRateLimiter(rps, burst)
		}
	}
}

func NewServer(svc FeedService, auth Authenticator, log zerolog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		svc:             svc,
		auth:            auth,
		log:             log,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router 组装路由与中间件链。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/feed", s.handleFeed)
			r.Post("/posts/{postID}/seen", s.handleMarkSeen)
		})
		r.Get("/interests", s.handleListInterests)
	})
	return r
}

// handleFeed 处理 GET /api/feed?page=&page_size=。
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > s.maxPageSize {
		pageSize = s.defaultPageSize
	}

	fp, err := s.svc.GetFeed(r.Context(), userID, page, pageSize, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, feedResponse{
		Posts:      renderItems(fp.Posts),
		Pagination: fp.Pagination,
	})
}

// handleMarkSeen 处理 POST /api/posts/{postID}/seen。
func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid post id"})
		return
	}

	if err := s.svc.MarkSeen(r.Context(), userID, postID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "post marked as seen",
		"post_id": postID,
	})
}

// handleListInterests 处理 GET /api/interests。
func (s *Server) handleListInterests(w http.ResponseWriter, r *http.Request) {
	interests, err := s.svc.ListInterests(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"interests": interests})
}

// authenticate 解析 "Authorization: Token <token>"，把用户 ID 放进 context。
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		userID, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger 为每个请求生成 request id 并记录结构化访问日志。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.limiter.Allow(key) {
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if core.IsNotFound(err) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

type feedResponse struct {
	Posts      []postResponse  `json:"posts"`
	Pagination core.Pagination `json:"pagination"`
}

type postResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	TagIDs    []int64   `json:"tag_ids"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// renderItems 展开 Item 为响应结构，分数保留两位小数。
func renderItems(items []*core.Item) []postResponse {
	out := make([]postResponse, 0, len(items))
	for _, it := range items {
		if it == nil || it.Post == nil {
			continue
		}
		out = append(out, postResponse{
			ID:        it.Post.ID,
			Text:      it.Post.Text,
			ImageURL:  it.Post.ImageURL,
			TagIDs:    it.Post.TagIDs,
			CreatedAt: it.Post.CreatedAt,
			Score:     math.Round(it.Score*100) / 100,
		})
	}
	return out
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func userIDFrom(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxKeyUserID).(int64); ok {
		return v
	}
	return 0
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
