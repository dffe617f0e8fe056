package response

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/types"
	"github.com/quka-ai/synthesis/pkg/utils"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet("i18n").(i18n.Localizer)
}

// 常量定义
const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
)

// Response 响应结构体定义
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

// Meta 响应meta定义
type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func GetLangFromRequestOrDefault(c *gin.Context) string {
	lang := c.Request.Header.Get("Accept-Language")
	if lang == "zh" {
		lang = "zh-CN"
	}
	if i18n.ALLOW_LANG[lang] {
		return lang
	}
	return i18n.DEFAULT_LANG
}

// APIError api响应失败，data 中带上不含 trace 的错误描述
func APIError(c *gin.Context, err error) {
	c.Abort()
	l := InjectResponseLocalizer(c)

	res := c.MustGet(ResponseKey).(*Response)
	var cerr *errors.CustomizedError
	if !errors.As(err, &cerr) {
		res.Meta.Code = http.StatusInternalServerError
		res.Meta.Message = err.Error()
	} else {
		res.Meta.Code = cerr.GetCode()
		res.Meta.Message = l.Get(GetLangFromRequestOrDefault(c), cerr.Message())
	}
	res.Data = types.SynthesisErrorResult{
		Status:  types.SYNTHESIS_STATUS_ERROR,
		Message: errors.Describe(err),
	}

	c.JSON(res.Meta.Code, res)
	printErrorLog(c, res, err)
}

func printErrorLog(c *gin.Context, res *Response, err error) {
	endTime := time.Now().Unix()
	// 统一打印日志
	var logFields = map[string]any{
		"request_uri": c.Request.URL.Path,
		"request_id":  res.Meta.RequestID,
		"end_time":    endTime,
		"code":        res.Meta.Code,
		"error":       err.Error(),
		"kind":        string(errors.KindOf(err)),
	}
	slog.Error("response error", slog.Any("fields", logFields))
}

func printSuccessLog(c *gin.Context, res *Response) {
	endTime := time.Now().Unix()
	// 统一打印日志
	var logFields = map[string]any{
		"request_uri": c.Request.URL.Path,
		"request_id":  res.Meta.RequestID,
		"end_time":    endTime,
		"params":      c.Request.URL.Query().Encode(),
	}
	slog.Info("request success", slog.Any("fields", logFields))
}

// APISuccess api响应成功
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := c.MustGet(ResponseKey).(*Response)
	if response != nil {
		res.Data = response
	}
	c.JSON(http.StatusOK, res)
	printSuccessLog(c, res)
}

// GetRequestID 获取请求ID
func GetRequestID(c *gin.Context) string {
	if res, ok := c.Get(ResponseKey); ok {
		return res.(*Response).Meta.RequestID
	}
	return ""
}

// NewResponse 为每个请求生成 request id，优先使用上游传入的 X-Request-ID
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenUniqIDStr()
		}
		resp := &Response{
			Meta: Meta{
				Code:      http.StatusOK,
				RequestID: requestID,
			},
		}
		c.Set(ResponseKey, resp)
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
	}
}
