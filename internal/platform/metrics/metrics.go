package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 是业务模块记录指标时依赖的最小接口
type Recorder interface {
	ObserveRequest(route string, status int, duration time.Duration)
	IncTargetResolution(source string)
	IncScoreSubmission(outcome string)
	IncLeaderboardCache(result string)
	IncArchiveSnapshot(success bool)
}

// Provider 是基于Prometheus的Recorder实现，持有独立的Registry
type Provider struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	targetResolutions *prometheus.CounterVec
	scoreSubmissions  *prometheus.CounterVec
	leaderboardCache  *prometheus.CounterVec
	archiveSnapshots  *prometheus.CounterVec
}

// NewProvider 创建并注册所有指标
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	p := &Provider{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daily_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "daily_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		targetResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daily_target_resolutions_total",
			Help: "Daily target lookups by the schema that answered them",
		}, []string{"source"}),
		scoreSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daily_score_submissions_total",
			Help: "Score submissions by outcome",
		}, []string{"outcome"}),
		leaderboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daily_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result",
		}, []string{"result"}),
		archiveSnapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daily_archive_snapshots_total",
			Help: "Archive snapshots by result",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requestsTotal,
		p.requestDuration,
		p.targetResolutions,
		p.scoreSubmissions,
		p.leaderboardCache,
		p.archiveSnapshots,
	)
	return p
}

func (p *Provider) ObserveRequest(route string, status int, duration time.Duration) {
	p.requestsTotal.WithLabelValues(route, statusBucket(status)).Inc()
	p.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (p *Provider) IncTargetResolution(source string) {
	p.targetResolutions.WithLabelValues(source).Inc()
}

func (p *Provider) IncScoreSubmission(outcome string) {
	p.scoreSubmissions.WithLabelValues(outcome).Inc()
}

func (p *Provider) IncLeaderboardCache(result string) {
	p.leaderboardCache.WithLabelValues(result).Inc()
}

func (p *Provider) IncArchiveSnapshot(success bool) {
	p.archiveSnapshots.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Handler 返回 /metrics 的HTTP处理器
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Middleware 记录每个请求的路由、状态码和耗时
func Middleware(rec Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop 在指标被禁用时使用
type Noop struct{}

func (Noop) ObserveRequest(string, int, time.Duration) {}
func (Noop) IncTargetResolution(string)                {}
func (Noop) IncScoreSubmission(string)                 {}
func (Noop) IncLeaderboardCache(string)                {}
func (Noop) IncArchiveSnapshot(bool)                   {}
