package chat

import (
	"errors"
	"net/http"

	"sitebot-ai-server/src/core/botstore"
	"sitebot-ai-server/src/core/relay"
	"sitebot-ai-server/src/core/transcript"
	"sitebot-ai-server/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleSendMessage 处理入站消息（同步形态）
func (s *RelayService) handleSendMessage(c *gin.Context) {
	bot, err := s.botService.GetActiveByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.respondBotError(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	sid := sessionID(c, req.SessionID)
	result, err := s.engine.SendMessage(c.Request.Context(), bot, sid, req.Message, req.NoAnswer)
	if err != nil {
		if errors.Is(err, relay.ErrInvalidRequest) {
			utils.Error(c, http.StatusBadRequest, "message 和 session_id 不能为空")
			return
		}
		s.logger.Error("处理入站消息失败: bot=%d err=%v", bot.ID, err)
		utils.Error(c, http.StatusInternalServerError, "服务内部错误")
		return
	}

	c.JSON(http.StatusOK, SendMessageResponse{
		ConversationID: result.ConversationID,
		Reply:          result.Reply,
	})
}

// handleStream 处理流式回答下发
// 会话必须已由入站接口创建，这里绝不产生创建副作用。
func (s *RelayService) handleStream(c *gin.Context) {
	bot, err := s.botService.GetActiveByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.respondBotError(c, err)
		return
	}

	sid := sessionID(c, "")
	if sid == "" {
		utils.Error(c, http.StatusBadRequest, "session_id 不能为空")
		return
	}

	w, err := newSSEWriter(c)
	if err != nil {
		utils.ErrorWithDetail(c, http.StatusInternalServerError, "流式初始化失败", err)
		return
	}

	streamID := uuid.NewString()
	s.logger.Debug("流式请求开始: stream=%s bot=%d session=%s", streamID, bot.ID, sid)

	if err := s.engine.StreamReply(c.Request.Context(), bot, sid, w); err != nil {
		// 事件流一旦开写，200状态已提交，不能再往上面追加JSON错误体
		if c.Writer.Written() {
			s.logger.Error("流式请求失败(流已开始): stream=%s err=%v", streamID, err)
			return
		}
		switch {
		case errors.Is(err, transcript.ErrConversationNotFound):
			utils.Error(c, http.StatusNotFound, "会话不存在")
		case errors.Is(err, relay.ErrInvalidRequest):
			utils.Error(c, http.StatusBadRequest, "session_id 不能为空")
		default:
			s.logger.Error("流式请求失败: stream=%s err=%v", streamID, err)
			utils.Error(c, http.StatusInternalServerError, "服务内部错误")
		}
		return
	}

	s.logger.Debug("流式请求结束: stream=%s", streamID)
}

// handleHistory 返回会话历史，无会话时返回空列表
func (s *RelayService) handleHistory(c *gin.Context) {
	bot, err := s.botService.GetActiveByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.respondBotError(c, err)
		return
	}

	sid := sessionID(c, "")
	if sid == "" {
		utils.Error(c, http.StatusBadRequest, "session_id 不能为空")
		return
	}

	msgs, err := s.engine.History(c.Request.Context(), bot, sid)
	if err != nil {
		s.logger.Error("查询会话历史失败: bot=%d err=%v", bot.ID, err)
		utils.Error(c, http.StatusInternalServerError, "查询失败")
		return
	}

	resp := HistoryResponse{Messages: make([]HistoryMessage, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *RelayService) respondBotError(c *gin.Context, err error) {
	if errors.Is(err, botstore.ErrBotNotFound) {
		utils.Error(c, http.StatusNotFound, "Bot不存在或已停用")
		return
	}
	s.logger.Error("查询Bot失败: %v", err)
	utils.Error(c, http.StatusInternalServerError, "服务内部错误")
}
