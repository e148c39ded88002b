package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types.
const (
	wsTypeDetect   = "detect"
	wsTypeEvaluate = "evaluate"
	wsTypeResponse = "detect_response"
	wsTypeError    = "error"
)

// WebSocketDetectRequest is a detection request sent over the socket. Image
// holds the encoded file, base64 in JSON.
type WebSocketDetectRequest struct {
	Type      string              `json:"type"` // "detect" or "evaluate"
	Name      string              `json:"name,omitempty"`
	Image     []byte              `json:"image,omitempty"`
	Truth     []groundtruth.Label `json:"truth,omitempty"`
	Threshold float64             `json:"threshold,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketDetectResponse reports progress and results of a request.
type WebSocketDetectResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"` // "processing", "completed", "error"
	Progress  float64 `json:"progress,omitempty"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// detectWebSocketHandler upgrades the connection and serves detection requests.
func (s *Server) detectWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages until the client disconnects.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage decodes and serves one request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketDetectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	requestID := uuid.NewString()

	switch req.Type {
	case wsTypeDetect, wsTypeEvaluate:
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "Detection pipeline not initialized")
		return
	}

	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      wsTypeResponse,
		Status:    "processing",
		RequestID: requestID,
	})

	img, err := utils.DecodeImageBytes(req.Image)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	start := time.Now()
	res, err := s.pipeline.DetectImageContext(ctx, img)
	duration := time.Since(start)
	if err != nil {
		requestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("Detection failed: %v", err))
		return
	}
	res.ImageID = req.Name
	requestsTotal.WithLabelValues("websocket", "success").Inc()
	processingDuration.WithLabelValues("websocket").Observe(duration.Seconds())
	peopleDetected.WithLabelValues("websocket").Observe(float64(res.Count))

	if req.Type == wsTypeDetect {
		s.sendWebSocketResponse(conn, WebSocketDetectResponse{
			Type:      wsTypeResponse,
			Status:    "completed",
			Progress:  1.0,
			Result:    res,
			RequestID: requestID,
		})
		return
	}

	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      wsTypeResponse,
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.pipeline.Config().MatchThreshold
	}
	set := groundtruth.Set{}
	set.Add(req.Name, req.Truth...)
	report, match, evalErr := metrics.Evaluate(detector.LabelPoints(res.Labels), set, req.Name, threshold)
	recordMatch(match)

	out := EvaluateResponse{
		Success:   evalErr == nil,
		Detection: res,
		Match:     &match,
		Report:    &report,
		Threshold: threshold,
	}
	if evalErr != nil {
		out.Error = evalErr.Error()
	}
	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      wsTypeResponse,
		Status:    "completed",
		Progress:  1.0,
		Result:    out,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketDetectResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      wsTypeError,
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
