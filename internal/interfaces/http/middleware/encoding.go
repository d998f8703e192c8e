package middleware

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// EnsureUTF8Body 把 JSON 请求体统一转成 UTF-8
// 请求声明了 charset 时按声明解码（如 iso-8859-1 终端里输入的 "Zürich"）；
// 未声明时按 GBK 尝试，中文 Windows 终端下用 curl 提问就是这种情况
func EnsureUTF8Body() gin.HandlerFunc {
	logger := log.NewModuleLogger("http", "encoding")

	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		mediaType, charset := parseContentType(c.GetHeader("Content-Type"))
		if !isJSON(mediaType) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			c.Next()
			return
		}

		body := raw
		if !utf8.Valid(raw) {
			if decoded, name, ok := decodeBody(raw, charset); ok {
				logger.Debug("Request body transcoded to UTF-8",
					"charset", name,
					"path", c.Request.URL.Path,
				)
				body = decoded
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}

// parseContentType 拆出媒体类型与 charset 参数
func parseContentType(header string) (mediaType, charset string) {
	if header == "" {
		return "", ""
	}
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0])), ""
	}
	return mediaType, strings.ToLower(params["charset"])
}

// 未声明类型的请求体也按 JSON 处理
func isJSON(mediaType string) bool {
	return mediaType == "" || strings.HasSuffix(mediaType, "json")
}

// decodeBody 按声明的 charset 解码，未声明或无法识别时回退到 GBK
func decodeBody(raw []byte, charset string) ([]byte, string, bool) {
	var enc encoding.Encoding = simplifiedchinese.GBK
	name := "gbk"
	if charset != "" && charset != "utf-8" && charset != "utf8" {
		if declared, err := htmlindex.Get(charset); err == nil {
			enc, name = declared, charset
		}
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(decoded) {
		return nil, "", false
	}
	return decoded, name, true
}
