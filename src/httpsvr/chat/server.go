package chat

import (
	"sitebot-ai-server/src/core/botstore"
	"sitebot-ai-server/src/core/relay"
	"sitebot-ai-server/src/core/utils"

	"github.com/gin-gonic/gin"
)

// RelayService 中继HTTP服务
// 访问控制只有一道：路径里的Bot凭证token。流式传输自身不做鉴权，
// token即能力凭证。
type RelayService struct {
	logger     *utils.Logger
	botService botstore.Service
	engine     *relay.Engine
}

// NewRelayService 创建中继HTTP服务
func NewRelayService(logger *utils.Logger, botService botstore.Service, engine *relay.Engine) *RelayService {
	return &RelayService{
		logger:     logger,
		botService: botService,
		engine:     engine,
	}
}

// Start 注册chat相关路由
func (s *RelayService) Start(apiGroup *gin.RouterGroup) {
	chatGroup := apiGroup.Group("/chat")
	{
		chatGroup.POST("/send/:token", s.handleSendMessage)
		chatGroup.GET("/stream/:token", s.handleStream)
		chatGroup.GET("/history/:token", s.handleHistory)
	}
}

// sessionID 从查询参数或请求头回退获取会话标识
func sessionID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if sid := c.Query("session_id"); sid != "" {
		return sid
	}
	return c.GetHeader("X-Session-ID")
}
