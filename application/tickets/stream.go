package tickets

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	json "github.com/json-iterator/go"

	"qdispatch/common"
	"qdispatch/middleware"
)

// chunkThreshold is the buffer size that triggers a chunk flush.
const chunkThreshold = 32 * 1024

// StreamList streams the filtered ticket listing as one JSON array in
// pooled chunks, for exporting large histories without buffering them
// in memory.
func (s *Service) StreamList(ctx context.Context, filter ListFilter) middleware.StreamResponse {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return middleware.StreamResponse{
			Code:  http.StatusInternalServerError,
			Error: fmt.Errorf("failed to count tickets: %w", err),
		}
	}

	rows, err := s.repo.Rows(ctx, filter)
	if err != nil {
		return middleware.StreamResponse{
			Code:  http.StatusInternalServerError,
			Error: err,
		}
	}

	return middleware.StreamResponse{
		TotalCount: total,
		ChunkChan:  s.streamRows(ctx, rows),
		Code:       http.StatusOK,
	}
}

// streamRows scans the cursor and accumulates marshaled tickets into
// pooled buffers, flushing a chunk whenever one exceeds the threshold.
// The stream writer returns the buffers to the pool.
func (s *Service) streamRows(ctx context.Context, rows *sql.Rows) <-chan middleware.StreamChunk {
	chunkChan := make(chan middleware.StreamChunk, 4)

	go func() {
		defer close(chunkChan)
		defer rows.Close()

		buf := middleware.JSONBufferPool.Get().(*[]byte)
		*buf = (*buf)[:0]
		*buf = append(*buf, '[')

		releaseBuf := func() {
			*buf = (*buf)[:0]
			middleware.JSONBufferPool.Put(buf)
		}

		first := true
		for rows.Next() {
			select {
			case <-ctx.Done():
				releaseBuf()
				return
			default:
			}

			var ticket common.Ticket
			if err := s.repo.ScanRow(rows, &ticket); err != nil {
				releaseBuf()
				chunkChan <- middleware.StreamChunk{Error: err}
				return
			}

			data, err := json.Marshal(ticket)
			if err != nil {
				releaseBuf()
				chunkChan <- middleware.StreamChunk{Error: fmt.Errorf("failed to marshal ticket %d: %w", ticket.ID, err)}
				return
			}

			if !first {
				*buf = append(*buf, ',')
			}
			first = false
			*buf = append(*buf, data...)

			if len(*buf) > chunkThreshold {
				chunkChan <- middleware.StreamChunk{JSONBuf: buf}
				buf = middleware.JSONBufferPool.Get().(*[]byte)
				*buf = (*buf)[:0]
			}
		}

		if err := rows.Err(); err != nil {
			releaseBuf()
			chunkChan <- middleware.StreamChunk{Error: fmt.Errorf("error iterating ticket rows: %w", err)}
			return
		}

		*buf = append(*buf, ']')
		chunkChan <- middleware.StreamChunk{JSONBuf: buf}
	}()

	return chunkChan
}
