package relay

import (
	"context"
	"strings"

	"sitebot-ai-server/src/core/utils"
)

// EventWriter 流式事件的线级写出接口
// 一个数据帧对应一个片段；终止帧与数据帧可区分，且无论生产者
// 正常结束还是出错都必须发出，不能让通道悬着。
type EventWriter interface {
	// WriteDirective 起始指令帧（在任何数据帧之前写出一次）
	WriteDirective() error
	// WriteDelta 数据帧，携带一个文本片段
	WriteDelta(delta string) error
	// WriteDone 终止帧
	WriteDone() error
}

// Multiplexer 把内部片段序列桥接为线级事件序列
// 严格按生产顺序逐片段转发，不重排；片段通道容量为1，生产者最多
// 领先消费者一个片段，不做更多缓冲。
type Multiplexer struct {
	w      EventWriter
	logger *utils.Logger
}

// NewMultiplexer 创建流式桥接器
func NewMultiplexer(w EventWriter, logger *utils.Logger) *Multiplexer {
	return &Multiplexer{
		w:      w,
		logger: logger,
	}
}

// Forward 拉取片段并逐帧写出，返回累计文本与首个写出错误
// 写出失败（对端掉线）时立即停止拉取，但已累计的内容仍交还引擎
// 做尽力而为的落库；终止帧始终尽力发出。
func (m *Multiplexer) Forward(ctx context.Context, fragments <-chan string) (string, error) {
	var acc strings.Builder
	var writeErr error

	if err := m.w.WriteDirective(); err != nil {
		writeErr = err
	}

	if writeErr == nil {
	loop:
		for {
			select {
			case delta, ok := <-fragments:
				if !ok {
					break loop
				}
				acc.WriteString(delta)
				if err := m.w.WriteDelta(delta); err != nil {
					writeErr = err
					break loop
				}
			case <-ctx.Done():
				writeErr = ctx.Err()
				break loop
			}
		}
	}

	// 掉线时终止帧写不出去，忽略即可
	if err := m.w.WriteDone(); err != nil && writeErr == nil {
		writeErr = err
	}

	return acc.String(), writeErr
}
