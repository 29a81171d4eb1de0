package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geoattend/internal/attendance"
	"geoattend/internal/config"
	"geoattend/internal/export"
	"geoattend/internal/httpmiddleware"
	"geoattend/internal/live"
	"geoattend/internal/metrics"
	"geoattend/internal/queue"
	"geoattend/internal/session"
	"geoattend/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var db *store.DB
	var sessRepo session.Repository
	var recRepo attendance.Repository

	if cfg.StoreBackend == "memory" {
		log.Println("using in-memory store (dev mode, data is not durable)")
		sessRepo = session.NewMemoryRepository()
		recRepo = attendance.NewMemoryRepository()
	} else {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		sessRepo = session.NewPostgresRepository(db.Client)
		recRepo = attendance.NewPostgresRepository(db.Client)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "geoattend:checkins")
	}

	sessions := session.NewService(sessRepo, cfg.DefaultRadiusM, cfg.DefaultDuration, nil)
	admissions := attendance.NewService(sessRepo, recRepo, nil)
	liveCounts := live.NewCounter(redisClient.Client, cfg.LiveCountTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db == nil || db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/sessions", func(c *gin.Context) {
		var req struct {
			ProfessorName   string   `json:"professorName" binding:"required"`
			CourseCode      string   `json:"courseCode" binding:"required"`
			Latitude        *float64 `json:"latitude"`
			Longitude       *float64 `json:"longitude"`
			Radius          int      `json:"radius"`
			DurationMinutes int      `json:"durationMinutes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sess, err := sessions.Create(c.Request.Context(), session.CreateParams{
			ProfessorName:   req.ProfessorName,
			CourseCode:      req.CourseCode,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			RadiusM:         req.Radius,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			log.Printf("create session failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		metrics.SessionsCreated.Inc()
		c.JSON(http.StatusCreated, sess)
	})

	r.GET("/v1/sessions/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		sess, err := sessions.Get(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			log.Printf("fetch session failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session"})
			return
		}

		attendees, err := admissions.List(ctx, sess.ID, attendance.OrderByTimeDesc)
		if err != nil {
			log.Printf("list attendees failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session"})
			return
		}

		count, ok := liveCounts.Get(ctx, sess.ID)
		if !ok {
			count = int64(len(attendees))
		}

		c.JSON(http.StatusOK, gin.H{
			"session":       sess,
			"status":        sessions.Status(sess),
			"attendees":     attendees,
			"attendeeCount": count,
		})
	})

	r.PATCH("/v1/sessions/:id", func(c *gin.Context) {
		var req struct {
			IsActive *bool `json:"isActive" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sess, err := sessions.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrReopen):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Session cannot be re-opened"})
			case errors.Is(err, session.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			default:
				log.Printf("update session failed: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
			}
			return
		}

		metrics.SessionsClosed.Inc()
		c.JSON(http.StatusOK, sess)
	})

	r.POST("/v1/attendance", func(c *gin.Context) {
		var req struct {
			SessionID         string   `json:"sessionId" binding:"required"`
			StudentName       string   `json:"studentName" binding:"required"`
			RollNumber        string   `json:"rollNumber" binding:"required"`
			Latitude          *float64 `json:"latitude"`
			Longitude         *float64 `json:"longitude"`
			DeviceFingerprint string   `json:"deviceFingerprint"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := admissions.CheckIn(c.Request.Context(), attendance.CheckInRequest{
			SessionID:         req.SessionID,
			StudentName:       req.StudentName,
			RollNumber:        req.RollNumber,
			Latitude:          req.Latitude,
			Longitude:         req.Longitude,
			DeviceFingerprint: req.DeviceFingerprint,
		})
		if err != nil {
			status, msg := admissionError(err)
			if status == http.StatusInternalServerError {
				log.Printf("check-in failed: %v", err)
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}

		if err := q.Publish(c.Request.Context(), queue.Message{Kind: queue.KindCheckIn, SessionID: rec.SessionID}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusOK, rec)
	})

	r.GET("/v1/sessions/:id/export", func(c *gin.Context) {
		sess, records, ok := rosterForExport(c, sessions, admissions)
		if !ok {
			return
		}
		content, err := export.CSV(sess, records)
		if err != nil {
			log.Printf("csv export failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
			return
		}
		metrics.Exports.WithLabelValues("csv").Inc()
		c.Header("Content-Disposition", `attachment; filename="`+export.Filename(sess, "csv")+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", content)
	})

	r.GET("/v1/sessions/:id/export.pdf", func(c *gin.Context) {
		sess, records, ok := rosterForExport(c, sessions, admissions)
		if !ok {
			return
		}
		content, err := export.PDF(sess, records)
		if err != nil {
			log.Printf("pdf export failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
			return
		}
		metrics.Exports.WithLabelValues("pdf").Inc()
		c.Header("Content-Disposition", `attachment; filename="`+export.Filename(sess, "pdf")+`"`)
		c.Data(http.StatusOK, "application/pdf", content)
	})

	// Graceful shutdown
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

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// rosterForExport loads the session and its attendees roll-ascending,
// writing the error response itself when something is off.
func rosterForExport(c *gin.Context, sessions *session.Service, admissions *attendance.Service) (session.Session, []attendance.Record, bool) {
	ctx := c.Request.Context()
	sess, err := sessions.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		} else {
			log.Printf("fetch session failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		}
		return session.Session{}, nil, false
	}
	records, err := admissions.List(ctx, sess.ID, attendance.OrderByRollAsc)
	if err != nil {
		log.Printf("list attendees failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return session.Session{}, nil, false
	}
	return sess, records, true
}

// admissionError maps an admission rejection to its HTTP status and
// user-facing message. Storage failures stay generic.
func admissionError(err error) (int, string) {
	var oor *attendance.OutOfRangeError
	switch {
	case errors.Is(err, attendance.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, attendance.ErrSessionClosed):
		return http.StatusBadRequest, "Session is closed"
	case errors.Is(err, attendance.ErrSessionExpired):
		return http.StatusBadRequest, "Session has expired"
	case errors.Is(err, attendance.ErrLocationRequired):
		return http.StatusBadRequest, "Location data is required"
	case errors.Is(err, attendance.ErrAlreadyMarked):
		return http.StatusBadRequest, "Attendance already marked for this roll number"
	case errors.As(err, &oor):
		return http.StatusBadRequest, oor.Error()
	default:
		return http.StatusInternalServerError, "Failed to mark attendance"
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
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

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
