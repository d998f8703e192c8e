package agent

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/weatherbot/backend/internal/domain/chat"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 使用 tiktoken 计算 Token 数量
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

var (
	counterInstance *TokenCounter
	counterOnce     sync.Once
	counterErr      error
)

// GetTokenCounter 获取 TokenCounter 单例
func GetTokenCounter() (*TokenCounter, error) {
	counterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &TokenCounter{encoding: enc}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
// 编码器不可用时按每 4 个字符一个 token 估算
func (c *TokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.encoding == nil {
		return estimateTokens(text)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.encoding.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TrimToBudget 把历史裁剪到 token 预算内，budget <= 0 表示不限制
// 第一条消息放得下时始终保留（重新播种的地点），其余从最新的往前填充
func (c *TokenCounter) TrimToBudget(turns []chat.Message, budget int) []chat.Message {
	if budget <= 0 || len(turns) == 0 {
		return turns
	}

	first := c.CountTokens(turns[0].Content)
	if first > budget {
		return c.newestWithin(turns[1:], budget)
	}

	rest := c.newestWithin(turns[1:], budget-first)
	if len(rest) == len(turns)-1 {
		return turns
	}
	out := make([]chat.Message, 0, len(rest)+1)
	out = append(out, turns[0])
	return append(out, rest...)
}

// newestWithin 返回预算内最长的最新消息后缀
func (c *TokenCounter) newestWithin(turns []chat.Message, budget int) []chat.Message {
	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		n := c.CountTokens(turns[i].Content)
		if total+n > budget {
			break
		}
		total += n
		start = i
	}
	return turns[start:]
}
