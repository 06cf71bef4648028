package common

import (
	"net/http"
)

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// WithErr 複製錯誤並附加原始錯誤
func (e *CustomError) WithErr(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "不支持的請求方法", http.StatusMethodNotAllowed, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrCacheDisabled    = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
	ErrCacheMiss        = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
	ErrAIServiceError   = NewError("AI_SERVICE_ERROR", "AI 服務錯誤", http.StatusServiceUnavailable, nil)
	ErrQueueFull        = NewError("QUEUE_FULL", "規劃隊列已滿", http.StatusServiceUnavailable, nil)
	ErrQueueClosed      = NewError("QUEUE_CLOSED", "規劃隊列已關閉", http.StatusServiceUnavailable, nil)
	ErrNoProducts       = NewError("NO_PRODUCTS", "No products selected", http.StatusBadRequest, nil)
	ErrCatalogUnloaded  = NewError("CATALOG_UNAVAILABLE", "商品目錄不可用", http.StatusServiceUnavailable, nil)
	ErrRecipeIndexEmpty = NewError("RECIPE_INDEX_EMPTY", "食譜索引為空", http.StatusServiceUnavailable, nil)

	// 規劃管線錯誤：翻譯與檢索在本地降級，生成與解析錯誤回報給呼叫端
	ErrTranslationFailure = NewError("TRANSLATION_FAILURE", "Translation failed", http.StatusBadGateway, nil)
	ErrRetrievalFailure   = NewError("RETRIEVAL_FAILURE", "Recipe retrieval failed", http.StatusBadGateway, nil)
	ErrGenerationFailure  = NewError("GENERATION_FAILURE", "Failed to generate plan", http.StatusBadGateway, nil)
	ErrParseFailure       = NewError("PARSE_FAILURE", "Failed to parse generated plan", http.StatusBadGateway, nil)
)
