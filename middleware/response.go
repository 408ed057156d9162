package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

func setResponseDefaults(r *Response) {
	if r.Message == "" {
		r.Message = "Success"
	}
	if r.Code == 0 {
		r.Code = http.StatusOK
	}
}

func logResponseError(c *gin.Context, logger *zap.Logger, r Response) {
	if r.Error == nil {
		return
	}

	logger.Warn("request failed",
		zap.String("requestId", c.GetString("requestId")),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", r.Code),
		zap.Error(r.Error),
	)
}

func getStartTime(c *gin.Context) time.Time {
	if value, exists := c.Get("start-time"); exists || value != nil {
		if t, ok := value.(time.Time); ok {
			return t
		}
	}
	return time.Now()
}

func buildDebugInfo(c *gin.Context, r Response) *ResponseAPIDebug {
	startTime := getStartTime(c)
	endTime := time.Now()

	var errStr *string
	if r.Error != nil {
		s := r.Error.Error()
		errStr = &s
	}

	return &ResponseAPIDebug{
		Version:   c.GetString("version"),
		StartTime: startTime,
		EndTime:   endTime,
		RuntimeMs: endTime.Sub(startTime).Milliseconds(),
		Error:     errStr,
	}
}

func buildResponseAPI(c *gin.Context, r Response, shouldDebug bool) ResponseAPI {
	response := ResponseAPI{
		RequestID: c.GetString("requestId"),
		Message:   r.Message,
		Data:      r.Data,
	}

	if shouldDebug {
		response.Debug = buildDebugInfo(c, r)
	}

	return response
}

func send(c *gin.Context, logger *zap.Logger, shouldDebug bool) func(r Response) {
	return func(r Response) {
		setResponseDefaults(&r)
		logResponseError(c, logger, r)
		response := buildResponseAPI(c, r, shouldDebug)

		c.Abort()
		c.JSON(r.Code, response)
	}
}

func RequestInit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("requestId", uuid.New().String())
		version := c.Request.Header.Get("version")
		if version == "" {
			version = "1.0.0"
		}
		c.Set("version", version)
		c.Set("start-time", time.Now())
		c.Next()
	}
}

// sendStream writes a chunked JSON array response. Chunk buffers come
// from JSONBufferPool and are returned to it after writing.
func sendStream(c *gin.Context, logger *zap.Logger, shouldDebug bool) func(r StreamResponse) {
	return func(r StreamResponse) {
		if r.Code == 0 {
			r.Code = http.StatusOK
		}

		if r.Error != nil {
			send(c, logger, shouldDebug)(Response{
				Code:    r.Code,
				Message: "Stream failed",
				Error:   r.Error,
			})
			return
		}

		c.Header("Content-Type", "application/json")
		c.Header("X-Total-Count", fmt.Sprintf("%d", r.TotalCount))

		writer := c.Writer
		started := false

		for chunk := range r.ChunkChan {
			select {
			case <-c.Request.Context().Done():
				logger.Warn("stream canceled",
					zap.String("requestId", c.GetString("requestId")),
					zap.Error(c.Request.Context().Err()),
				)
				return
			default:
			}

			if chunk.Error != nil {
				logger.Error("stream error",
					zap.String("requestId", c.GetString("requestId")),
					zap.Error(chunk.Error),
				)
				if !started {
					send(c, logger, shouldDebug)(Response{
						Code:    http.StatusInternalServerError,
						Message: "Stream failed",
						Error:   chunk.Error,
					})
				}
				return
			}

			if chunk.JSONBuf != nil && len(*chunk.JSONBuf) > 0 {
				if !started {
					c.Status(r.Code)
					started = true
				}
				writer.Write(*chunk.JSONBuf)

				*chunk.JSONBuf = (*chunk.JSONBuf)[:0]
				JSONBufferPool.Put(chunk.JSONBuf)

				if flusher, ok := writer.(http.Flusher); ok {
					flusher.Flush()
				}
			}
		}

		if shouldDebug {
			endTime := time.Now()
			logger.Debug("stream completed",
				zap.String("requestId", c.GetString("requestId")),
				zap.Int64("runtimeMs", endTime.Sub(getStartTime(c)).Milliseconds()),
				zap.Int64("totalCount", r.TotalCount),
			)
		}

		c.Abort()
	}
}

func ResponseInit(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shouldDebug := gin.Mode() == gin.DebugMode
		c.Set("send", send(c, logger, shouldDebug))
		c.Set("sendStream", sendStream(c, logger, shouldDebug))
		c.Next()
	}
}
