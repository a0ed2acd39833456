package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/attendance"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/auth"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/behavior"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/cloudinary"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/config"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/faceclient"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/handler"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/httpmiddleware"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/incident"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/metrics"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/queue"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/report"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/scheduler"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.System{}

	var repo roster.Repository
	var reports report.Store
	if cfg.UseMemoryStore {
		repo = roster.NewMemory()
		reports = report.NewMemoryStore()
		log.Println("using in-memory stores")
	} else {
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Printf("warning: db not reachable, falling back to memory stores: %v", err)
			repo = roster.NewMemory()
			reports = report.NewMemoryStore()
		} else {
			defer db.Close()
			pg := roster.NewPostgres(db.Client)
			rs := report.NewPostgresStore(db.Client)
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			if err := rs.Migrate(ctx); err != nil {
				return err
			}
			repo = pg
			reports = rs
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "edp:reports")
	}

	staffDir := roster.NewStaffDirectory(model.Staff{
		ID:   "lead-1",
		Name: "Site Lead",
		Role: model.RoleLead,
	})

	sink := model.SinkFunc(func(e model.Event) {
		switch e.Type {
		case model.EventVisualAnomaly:
			metrics.AnomalyFlags.Inc()
			log.Printf("visual anomaly flagged for student %s (%s session)", e.StudentID, e.Session)
		case model.EventOverdueAssessment:
			metrics.OverdueAlerts.Inc()
			log.Printf("OVERDUE: %s assessment missed for student %s", e.Stage, e.StudentID)
		case model.EventCheckedOut:
			metrics.CheckOuts.WithLabelValues(string(e.Session), e.Mode).Inc()
		}
	})

	machine := attendance.NewMachine(repo, clk, sink, cfg.AutoAdvance)
	defer machine.Stop()
	monitor := incident.NewMonitor(repo, clk)
	workflow := behavior.NewWorkflow(repo, clk, reports)
	dispatcher := report.NewDispatcher(q)
	sched := scheduler.New(machine, clk, cfg.BatchTick)
	watcher := incident.NewWatcher(repo, clk, sink, cfg.OverdueTick)

	go watcher.Run(ctx)
	go sched.Run(ctx)

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	h := &handler.Handler{
		Repo:       repo,
		Staff:      staffDir,
		Machine:    machine,
		Monitor:    monitor,
		Behavior:   workflow,
		Reports:    reports,
		Dispatcher: dispatcher,
		Scheduler:  sched,
		Face:       face,
		Cloud:      cdnClient,
		Clock:      clk,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy && cfg.QueueBackend != "memory" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy})
	})

	r.POST("/v1/staff/login", func(c *gin.Context) {
		var req struct {
			StaffID string `json:"staff_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		member, err := staffDir.Get(req.StaffID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown staff member"})
			return
		}
		tokens, err := auth.Issue(member.ID, string(member.Role), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	h.Register(authGroup)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
