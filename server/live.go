package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"e.coding.net/Love54dj/weizhong/md2txt/logger"
)

// 额外留给 JSON 包装的字节数
const liveEnvelopeBytes = 1024

const closeWriteTimeout = time.Second

// LiveRequest is one keystroke-level update from the editor.
type LiveRequest struct {
	Seq  int64  `json:"seq"`
	Text string `json:"text"`
}

// LiveResponse echoes Seq so the client can keep only the newest result.
type LiveResponse struct {
	Seq    int64  `json:"seq"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// handleLive converts every message it receives, in order. Each reply is
// independent; ordering across replies is left to the client via Seq.
func (s *Server) handleLive(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// 读取上限只限制内存占用，文本长度在解码后按 MaxInputBytes 检查
	conn.SetReadLimit(2*s.opts.MaxInputBytes + liveEnvelopeBytes)
	session := uuid.NewString()
	logger.DebugWithLine("live session opened", "session", session)

	ctx := c.Request.Context()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WarnWithLine("live session read failed", "session", session, "error", err)
			}
			return
		}

		var req LiveRequest
		var resp LiveResponse
		if err := json.Unmarshal(message, &req); err != nil {
			resp.Error = "invalid message: " + err.Error()
		} else if int64(len(req.Text)) > s.opts.MaxInputBytes {
			slog.Warn("live input too large", "session", session, "bytes", len(req.Text))
			msg := websocket.FormatCloseMessage(websocket.CloseMessageTooBig, ErrInputTooLarge.Error())
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
			return
		} else {
			resp.Seq = req.Seq
			resp.Output, _ = s.convert(ctx, req.Text)
		}
		if err := conn.WriteJSON(resp); err != nil {
			logger.WarnWithLine("live session write failed", "session", session, "error", err)
			return
		}
	}
}
