package middleware

import (
	"sync"
	"time"
)

type Response struct {
	Data    any
	Message string
	Code    int
	Error   error
}

type ResponseAPIDebug struct {
	Version   string    `json:"version"`
	Error     *string   `json:"error"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	RuntimeMs int64     `json:"runtimeMs"`
}

type ResponseAPI struct {
	RequestID string            `json:"requestId"`
	Data      any               `json:"data"`
	Message   string            `json:"message"`
	Debug     *ResponseAPIDebug `json:"debug,omitempty"`
}

// StreamChunk carries one pooled buffer of JSON array content.
type StreamChunk struct {
	JSONBuf *[]byte
	Error   error
}

// StreamResponse configures a chunked JSON array response.
type StreamResponse struct {
	TotalCount int64              // sent as X-Total-Count header
	ChunkChan  <-chan StreamChunk // data chunks; closed by the producer
	Error      error              // set when streaming fails before starting
	Code       int                // HTTP status code (default 200)
}

// JSONBufferPool holds reusable buffers for stream chunk encoding.
// Producers take buffers out, the stream writer puts them back.
var JSONBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 4096)
		return &buf
	},
}
