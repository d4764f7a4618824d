package relay

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/core/providers/llm"
	"sitebot-ai-server/src/core/session"
	"sitebot-ai-server/src/core/transcript"
	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"
	"sitebot-ai-server/src/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeProvider 可编程的补全后端
type fakeProvider struct {
	answer      string
	fragments   []string
	gotMessages []types.Message
}

func (f *fakeProvider) Response(_ context.Context, messages []types.Message) string {
	f.gotMessages = messages
	return f.answer
}

func (f *fakeProvider) ResponseStream(ctx context.Context, messages []types.Message) <-chan string {
	f.gotMessages = messages
	out := make(chan string, 1)
	go func() {
		defer close(out)
		for _, s := range f.fragments {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func newTestEngine(t *testing.T, fake *fakeProvider) (*Engine, *transcript.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000",
		filepath.Join(t.TempDir(), "relay_test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Bot{},
		&models.Conversation{},
		&models.ConversationMessage{},
	))

	logger, err := utils.NewLogger("ERROR", "", "")
	require.NoError(t, err)

	cfg := &configs.Config{}
	cfg.LLM = configs.LLMConfig{ModelName: "llama-3.3-70b-versatile", Timeout: 5}
	cfg.DefaultPrompt = "You are a helpful assistant."
	cfg.ContextWindow = 30

	store := transcript.NewStore(db, nil, logger)
	engine := NewEngine(store, session.NewResolver(store, logger), cfg, logger)
	engine.SetProviderFactory(func(_ *llm.Config) llm.Provider { return fake })
	return engine, store
}

func testBot() *models.Bot {
	return &models.Bot{
		ID:           1,
		Name:         "support-bot",
		SystemPrompt: "Answer questions about the Acme store.",
		ModelName:    "llama3-8b-8192",
		Temperature:  0.4,
		Token:        "abc123",
		IsActive:     true,
	}
}

func TestEngine_SendMessage_PersistsBothTurns(t *testing.T) {
	fake := &fakeProvider{answer: "Hello! How can I help?"}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()

	result, err := engine.SendMessage(ctx, testBot(), "s1", "  Hi  ", false)
	require.NoError(t, err)
	require.NotNil(t, result.Reply)
	require.Equal(t, "Hello! How can I help?", *result.Reply)

	rows, err := store.List(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, models.RoleUser, rows[0].Role)
	require.Equal(t, "Hi", rows[0].Content)
	require.Equal(t, models.RoleAssistant, rows[1].Role)
	require.Equal(t, "Hello! How can I help?", rows[1].Content)

	// 生成上下文以system prompt开头，末尾是刚落库的用户消息
	require.NotEmpty(t, fake.gotMessages)
	require.Equal(t, models.RoleSystem, fake.gotMessages[0].Role)
	require.Contains(t, fake.gotMessages[0].Content, "Answer questions about the Acme store.")
	last := fake.gotMessages[len(fake.gotMessages)-1]
	require.Equal(t, models.RoleUser, last.Role)
	require.Equal(t, "Hi", last.Content)
}

func TestEngine_SendMessage_NoAnswer(t *testing.T) {
	fake := &fakeProvider{answer: "should never be used"}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()

	result, err := engine.SendMessage(ctx, testBot(), "s1", "Hi", true)
	require.NoError(t, err)
	require.Nil(t, result.Reply)

	rows, err := store.List(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.RoleUser, rows[0].Role)
}

func TestEngine_SendMessage_Validation(t *testing.T) {
	fake := &fakeProvider{answer: "x"}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()

	_, err := engine.SendMessage(ctx, testBot(), "s1", "   ", false)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.SendMessage(ctx, testBot(), "", "Hi", false)
	require.ErrorIs(t, err, ErrInvalidRequest)

	// 校验失败不得产生任何状态变更
	_, err = store.Get(ctx, 1, "s1")
	require.ErrorIs(t, err, transcript.ErrConversationNotFound)
}

func TestEngine_SendMessage_DegradedAnswerPersisted(t *testing.T) {
	fake := &fakeProvider{answer: llm.ErrorTag + " upstream unreachable"}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()

	result, err := engine.SendMessage(ctx, testBot(), "s1", "Hi", false)
	require.NoError(t, err)

	rows, err := store.List(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, strings.HasPrefix(rows[1].Content, llm.ErrorTag))
	require.NotEmpty(t, rows[1].Content)
}

func TestEngine_StreamReply_AccumulatesAndPersists(t *testing.T) {
	fake := &fakeProvider{fragments: []string{"Hel", "lo", " world"}}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()
	bot := testBot()

	result, err := engine.SendMessage(ctx, bot, "s1", "Hi", true)
	require.NoError(t, err)

	rec := &frameRecorder{}
	require.NoError(t, engine.StreamReply(ctx, bot, "s1", rec))

	// 线级增量之和等于落库的单条assistant消息
	rows, err := store.List(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, models.RoleAssistant, rows[1].Role)
	require.Equal(t, "Hello world", rows[1].Content)
	require.Equal(t, strings.Join(rec.deltas, ""), rows[1].Content)
	require.Equal(t, 1, rec.dones)
}

func TestEngine_StreamReply_RequiresExistingConversation(t *testing.T) {
	fake := &fakeProvider{fragments: []string{"x"}}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()

	rec := &frameRecorder{}
	err := engine.StreamReply(ctx, testBot(), "never-seen", rec)
	require.ErrorIs(t, err, transcript.ErrConversationNotFound)
	require.Zero(t, rec.directives)

	_, err = store.Get(ctx, 1, "never-seen")
	require.ErrorIs(t, err, transcript.ErrConversationNotFound)
}

func TestEngine_StreamReply_WriterFailurePersistsPartial(t *testing.T) {
	fake := &fakeProvider{fragments: []string{"part1 ", "part2 ", "part3"}}
	engine, store := newTestEngine(t, fake)
	ctx := context.Background()
	bot := testBot()

	result, err := engine.SendMessage(ctx, bot, "s1", "Hi", true)
	require.NoError(t, err)

	// 第一个数据帧后对端掉线，已累计部分仍需尽力落库
	rec := &frameRecorder{failOnDelta: 1}
	require.NoError(t, engine.StreamReply(ctx, bot, "s1", rec))

	rows, err := store.List(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "part1 ", rows[1].Content)
}

func TestEngine_History(t *testing.T) {
	fake := &fakeProvider{answer: "Hello!"}
	engine, _ := newTestEngine(t, fake)
	ctx := context.Background()
	bot := testBot()

	// 无会话时返回空列表而非错误
	msgs, err := engine.History(ctx, bot, "fresh")
	require.NoError(t, err)
	require.Empty(t, msgs)

	_, err = engine.SendMessage(ctx, bot, "fresh", "Hi", false)
	require.NoError(t, err)

	msgs, err = engine.History(ctx, bot, "fresh")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, models.RoleUser, msgs[0].Role)
	require.Equal(t, "Hi", msgs[0].Content)
	require.Equal(t, models.RoleAssistant, msgs[1].Role)
}
