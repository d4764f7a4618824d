package chat

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sitebot-ai-server/src/core/relay"

	"github.com/gin-gonic/gin"
)

// sseWriter 把中继引擎的事件帧写成 text/event-stream
// 响应头在首个指令帧时才写出，解析失败的请求仍可返回普通JSON错误。
type sseWriter struct {
	c       *gin.Context
	flusher http.Flusher
}

var _ relay.EventWriter = (*sseWriter)(nil)

func newSSEWriter(c *gin.Context) (*sseWriter, error) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("响应流不支持flush")
	}
	return &sseWriter{c: c, flusher: flusher}, nil
}

// WriteDirective 写SSE响应头与起始重连指令
func (w *sseWriter) WriteDirective() error {
	w.c.Header("Content-Type", "text/event-stream")
	w.c.Header("Cache-Control", "no-cache")
	w.c.Header("Connection", "keep-alive")
	w.c.Status(http.StatusOK)
	if _, err := fmt.Fprint(w.c.Writer, "retry: 1000\n\n"); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// WriteDelta 每个片段一个数据帧，写完即flush
func (w *sseWriter) WriteDelta(delta string) error {
	data, err := json.Marshal(gin.H{"delta": delta})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// WriteDone 终止帧
func (w *sseWriter) WriteDone() error {
	data, err := json.Marshal(gin.H{"done": true})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}
