package provider

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/loader"
	"github.com/danmuck/emberctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// AdminRouter builds the HTTP admin surface: health, metrics, sessions and
// a JSON view of the live tree.
func (s *Service) AdminRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.Instrument(s.server.Name(), log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"node":     s.server.Name(),
			"uptime":   time.Since(s.started).String(),
			"sessions": s.active.Load(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": s.Sessions()})
	})
	r.GET("/tree", func(c *gin.Context) {
		var doc loader.Document
		s.server.View(func(root *glow.Root) {
			doc = loader.ExportRoot(root)
		})
		c.JSON(http.StatusOK, doc)
	})
	r.GET("/tree/*path", func(c *gin.Context) {
		raw := strings.Trim(c.Param("path"), "/")
		path, err := glow.ParsePath(strings.ReplaceAll(raw, "/", "."))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var (
			desc  loader.Description
			found bool
		)
		s.server.View(func(root *glow.Root) {
			if el := root.GetElementByPath(path); el != nil && el.Kind() != glow.KindRoot {
				desc = loader.Export(el)
				found = true
			}
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "element not found", "path": glow.FormatPath(path)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": glow.FormatPath(path), "element": desc})
	})
	return r
}

// ServeAdmin serves AdminRouter on addr until ctx ends.
func (s *Service) ServeAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("node", s.server.Name()).Str("addr", addr).Msg("admin listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" && !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = append(out, "http://localhost:3000")
	}
	return out
}

func sortSessions(in []SessionInfo) {
	slices.SortFunc(in, func(a, b SessionInfo) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
