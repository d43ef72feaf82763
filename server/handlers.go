package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"e.coding.net/Love54dj/weizhong/md2txt/logger"
	"e.coding.net/Love54dj/weizhong/md2txt/md2txt"
)

const defaultUser = "anonymous"

// ConvertQuery: stats 只能用于 json 格式，与 format=text 同时出现返回 400
type ConvertQuery struct {
	Stats  bool   `form:"stats"`
	Format string `form:"format"` // json（默认）或 text
}

type ConvertRequest struct {
	Text string `json:"text"`
}

type ConvertResponse struct {
	Output string          `json:"output"`
	Cached bool            `json:"cached"`
	Stats  *md2txt.Summary `json:"stats,omitempty"`
}

type ExportQuery struct {
	Backend string `form:"backend" binding:"required"`
	User    string `form:"user"`
	Name    string `form:"name"`
}

type ExportResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// readInput 读取 text/plain 或 JSON {"text": ...} 请求体，超过上限返回 ErrInputTooLarge
func (s *Server) readInput(c *gin.Context) (string, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxInputBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", ErrInputTooLarge
		}
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if c.ContentType() == gin.MIMEJSON {
		var req ConvertRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		return req.Text, nil
	}
	return string(data), nil
}

func abortInput(c *gin.Context, err error) {
	if errors.Is(err, ErrInputTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleConvert(c *gin.Context) {
	var q ConvertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	textFormat := strings.EqualFold(q.Format, "text")
	if textFormat && q.Stats {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stats is not available with format=text"})
		return
	}
	text, err := s.readInput(c)
	if err != nil {
		abortInput(c, err)
		return
	}

	output, cached := s.convert(c.Request.Context(), text)
	if textFormat {
		c.String(http.StatusOK, "%s", output)
		return
	}
	resp := ConvertResponse{Output: output, Cached: cached}
	if q.Stats {
		sum := md2txt.Inspect(text)
		resp.Stats = &sum
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExport(c *gin.Context) {
	var q ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	upload, ok := s.opts.Exporters[q.Backend]
	if !ok || upload == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("export backend %q is not enabled", q.Backend)})
		return
	}
	text, err := s.readInput(c)
	if err != nil {
		abortInput(c, err)
		return
	}
	output, _ := s.convert(c.Request.Context(), text)
	if output == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to export"})
		return
	}

	user := q.User
	if user == "" {
		user = defaultUser
	}
	name := exportName(q.Name)
	url, err := upload(c.Request.Context(), output, name, user)
	if err != nil {
		logger.ErrorWithLine("export failed", "backend", q.Backend, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "export failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, ExportResponse{URL: url, Name: name})
}

// exportName 只保留文件名部分并强制使用 .txt 后缀，为空时使用随机 uuid
func exportName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" || strings.Trim(name, ".") == "" {
		return uuid.NewString() + ".txt"
	}
	return name + ".txt"
}
