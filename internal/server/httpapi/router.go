// Package httpapi exposes the Lango services over HTTP using gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/lango/internal/logging"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Users          UserService
	Vocab          VocabService
	Tokens         TokenVerifier
	Logger         logging.Logger
	Metrics        *Metrics // optional
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine serving every Lango endpoint.
func NewRouter(d Deps) *gin.Engine {
	h := &handlers{users: d.Users, vocab: d.Vocab, log: d.Logger}
	wrap := func(fn HandlerFunc) gin.HandlerFunc { return adapt(fn, d.RequestTimeout) }

	r := gin.New()
	r.Use(accessLog(d.Logger), cors(), recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.POST("/signup", wrap(h.signup))
	r.POST("/login", wrap(h.login))

	user := r.Group("/users/:user_id", requireOwner(d.Tokens))
	user.GET("", wrap(h.getUser))
	user.PUT("", wrap(h.editUser))
	user.DELETE("", wrap(h.deleteUser))

	user.GET("/languages", wrap(h.listLanguages))
	user.POST("/languages", wrap(h.addLanguage))
	user.DELETE("/languages/:language", wrap(h.deleteLanguage))

	sets := user.Group("/languages/:language/sets")
	sets.GET("", wrap(h.listSets))
	sets.POST("", wrap(h.addSet))
	sets.GET("/:set_id", wrap(h.getSet))
	sets.PUT("/:set_id", wrap(h.editSet))
	sets.DELETE("/:set_id", wrap(h.deleteSet))

	cards := sets.Group("/:set_id/flashcards")
	cards.GET("", wrap(h.listFlashcards))
	cards.POST("", wrap(h.addFlashcard))
	cards.GET("/:flashcard_id", wrap(h.getFlashcard))
	cards.PUT("/:flashcard_id", wrap(h.editFlashcard))
	cards.DELETE("/:flashcard_id", wrap(h.deleteFlashcard))

	return r
}

// accessLog writes one record per request.
func accessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// recovery turns a panicking handler into an opaque 500.
func recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, v any) {
		log.Error(c.Request.Context(), "handler panic", "panic", v)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
	})
}
