// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
	"github.com/sriram687/adya-mcp-hackathon/internal/stream"
)

// handleProcessMessageStream runs one orchestration request with a live SSE
// side-channel. The run itself executes in the background; this handler only
// relays events. A consumer that sees no event within the configured timeout
// treats the stream as finished, not as a failure.
func (s *Server) handleProcessMessageStream(c *gin.Context) {
	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warnf("Malformed streaming request: %v", err)
	}
	req.ClientDetails.IsStream = true

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Status(http.StatusOK)

	emitter := stream.NewEmitter(s.cfg.Stream.BufferSize)

	// The run is deliberately detached from the request context: an abandoned
	// consumer must not cancel in-flight LLM or tool calls.
	go s.runStreaming(context.Background(), &req, emitter)

	for {
		select {
		case ev, ok := <-emitter.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Errorf("Failed to marshal stream event: %v", err)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
		case <-time.After(s.cfg.Stream.ConsumerTimeout):
			emitter.Abandon()
			return
		case <-c.Request.Context().Done():
			emitter.Abandon()
			return
		}
	}
}

// runStreaming is the producer side: preamble, validation, execution,
// terminal event, then the end-of-stream sentinel exactly once.
func (s *Server) runStreaming(ctx context.Context, req *model.ExecuteRequest, emitter *stream.Emitter) {
	defer emitter.End()

	emitter.Start()

	if err := s.validator.Validate(ctx, req); err != nil {
		s.logger.Warnf("Streaming request validation failed: %v", err)
		emitter.Fail(nil, err.Error())
		return
	}

	resp := s.engine.Execute(ctx, req, emitter)
	if !resp.Status {
		errMsg := ""
		if resp.Error != nil {
			errMsg = *resp.Error
		}
		emitter.Fail(resp.Data, errMsg)
		return
	}
	emitter.Result(resp)
}
