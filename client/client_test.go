package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"e.coding.net/Love54dj/weizhong/md2txt/client"
	"e.coding.net/Love54dj/weizhong/md2txt/server"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	upload := func(_ context.Context, content, name, user string) (string, error) {
		if user != "alice" {
			return "", errors.New("unexpected user " + user)
		}
		return "https://files.example.cn/" + name, nil
	}
	s := server.New(server.Options{Exporters: map[string]server.UploadFunc{"local": upload}})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestConvert(t *testing.T) {
	ts := newServer(t)
	c := client.New(ts.URL+"/", nil)

	res, err := c.Convert(context.Background(), "# T\n* a\n    * b", client.ConvertOptions{Stats: true})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.Output != "T\n1. a\n(1)b" {
		t.Errorf("Output = %q", res.Output)
	}
	if res.Stats == nil || res.Stats.Headings != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}

	res, err = c.Convert(context.Background(), "plain", client.ConvertOptions{})
	if err != nil || res.Stats != nil || res.Output != "plain" {
		t.Errorf("Convert() = %+v, %v", res, err)
	}
}

func TestExport(t *testing.T) {
	ts := newServer(t)
	c := client.New(ts.URL, ts.Client())

	res, err := c.Export(context.Background(), "* a", client.ExportOptions{Backend: "local", User: "alice", Name: "todo"})
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if res.Name != "todo.txt" || res.URL != "https://files.example.cn/todo.txt" {
		t.Errorf("Export() = %+v", res)
	}

	_, err = c.Export(context.Background(), "* a", client.ExportOptions{Backend: "cos"})
	if !errors.Is(err, client.ErrServer) {
		t.Fatalf("err = %v, want ErrServer", err)
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "not enabled") {
		t.Errorf("err = %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	if _, err := client.New(url, nil).Convert(context.Background(), "x", client.ConvertOptions{}); err == nil {
		t.Error("Convert() should fail when the server is down")
	}
}
