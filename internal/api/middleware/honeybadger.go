package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/reporting"
	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

// HoneybadgerMiddleware sends error/warning notifications through the reporter.
// On panic, it notifies and re-panics to allow gin.Recovery to handle the response.
func HoneybadgerMiddleware(rep *reporting.Reporter) gin.HandlerFunc {
	if !rep.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rep.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		// 409 is the expected answer to a concurrent refresh under the reject policy.
		if status >= 400 && status != 404 && status != 409 {
			if status >= 500 {
				rep.Notify(fmt.Sprintf("Error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), c.Request, honeybadger.Tags{"5XX", "http"})
			} else {
				rep.Notify(fmt.Sprintf("Warning: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), honeybadger.Tags{"4XX", "http"})
			}
			log.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		}
	}
}
