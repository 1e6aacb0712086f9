package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/shota3227/ludi/api/controllers"
	"github.com/shota3227/ludi/api/middleware"
	"github.com/shota3227/ludi/internal/attendance"
	"github.com/shota3227/ludi/internal/auth"
	"github.com/shota3227/ludi/internal/missions"
	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/internal/points"
	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/internal/skills"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/internal/users"
	"github.com/shota3227/ludi/pkg/auth/session"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
	pkgredis "github.com/shota3227/ludi/pkg/redis"
)

// redisStore is the slice of *redis.Client the HTTP layer needs.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Params carries everything the router mounts. Nil services produce 500s on
// their routes rather than panics.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          redisStore
	Sessions       session.AccessSessionChecker
	RateLimitStore limiter.Store
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics
	Location       *time.Location

	Auth           auth.Service
	Users          users.Service
	Stores         stores.Service
	Points         points.Service
	Attendance     attendance.Service
	Missions       missions.Service
	Skills         skills.Service
	Notifications  notifications.Service
	Reconciliation reconciliation.Service
}

func NewRouter(p Params) (http.Handler, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	cfg, logg := p.Config, p.Logger
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)
	if cfg.RateLimit.Enabled && p.RateLimitStore != nil {
		rateLimit, err := middleware.RateLimit(cfg.RateLimit.Rate, p.RateLimitStore, logg)
		if err != nil {
			return nil, err
		}
		r.Use(rateLimit)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	var redisPinger controllers.Pinger
	var limiterStore interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	var idempotencyStore pkgredis.IdempotencyStore
	if p.Redis != nil {
		redisPinger, limiterStore, idempotencyStore = p.Redis, p.Redis, p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": p.DB,
			"redis":    redisPinger,
		}))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/exchange", controllers.AuthExchange(p.Auth, logg))
		r.With(middleware.AuthRateLimit(signupPolicy, limiterStore, logg)).Post("/signup", controllers.AuthSignUp(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
	})

	// mission progress carries an absolute value and is left unguarded
	once := middleware.Idempotency(idempotencyStore, middleware.IdempotencyTTL, logg)
	onceCritical := middleware.Idempotency(idempotencyStore, middleware.CriticalIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Get("/me", controllers.Me(p.Users, logg))
		r.Patch("/me", controllers.UpdateMe(p.Users, logg))
		r.Get("/me/skills", controllers.MySkills(p.Skills, logg))

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", controllers.ListStores(p.Stores, logg))
			r.Route("/{storeId}", func(r chi.Router) {
				r.Get("/", controllers.GetStore(p.Stores, logg))
				r.Get("/members", controllers.StoreMembers(p.Users, logg))
				r.Get("/working", controllers.WorkingMembers(p.Attendance, logg))
				r.Get("/rankings", controllers.StoreRankings(p.Points, loc, logg))
				r.Get("/missions/today", controllers.TodayMissions(p.Missions, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager(logg), middleware.OwnStore(logg))
					r.With(once).Post("/missions", controllers.CreateMission(p.Missions, loc, logg))
					r.Get("/attendance/export", controllers.ExportAttendance(p.Attendance, loc, logg))
				})
			})
		})

		r.Route("/missions/{missionId}", func(r chi.Router) {
			r.Patch("/progress", controllers.UpdateMissionProgress(p.Missions, logg))
			r.With(middleware.RequireManager(logg), once).Post("/cancel", controllers.CancelMission(p.Missions, logg))
		})

		r.Route("/points", func(r chi.Router) {
			r.With(onceCritical).Post("/send", controllers.SendPoints(p.Points, logg))
			r.Get("/allowance", controllers.PointAllowance(p.Points, logg))
			r.Get("/summary", controllers.PointSummary(p.Points, logg))
			r.Get("/history", controllers.PointHistory(p.Points, logg))
			r.With(middleware.StoreContext(logg)).Get("/categories", controllers.PointCategories(p.Points, p.Stores, logg))
		})

		r.Route("/attendance", func(r chi.Router) {
			r.With(onceCritical).Post("/clock-in", controllers.ClockIn(p.Attendance, logg))
			r.With(once).Post("/{attendanceId}/clock-out", controllers.ClockOut(p.Attendance, logg))
			r.Get("/current", controllers.CurrentAttendance(p.Attendance, logg))
			r.Get("/history", controllers.AttendanceHistory(p.Attendance, logg))
		})

		r.With(middleware.StoreContext(logg)).Get("/skills", controllers.ListSkills(p.Skills, p.Stores, logg))
		r.With(middleware.RequireManager(logg), once).Post("/users/{userId}/skills", controllers.AcquireSkill(p.Skills, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/users", controllers.AdminListUsers(p.Users, logg))
			r.With(once).Post("/users", controllers.AdminCreateUser(p.Users, logg))
			r.Patch("/users/{userId}/active", controllers.AdminSetUserActive(p.Users, logg))
			r.Post("/reconciliation/check", controllers.ReconciliationCheck(p.Reconciliation, logg))
			r.With(onceCritical).Post("/reconciliation/execute", controllers.ReconciliationExecute(p.Reconciliation, logg))
		})
	})

	return r, nil
}
