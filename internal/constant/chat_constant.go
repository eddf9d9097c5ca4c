package constant

const (
	// DefaultSystemPrompt opens every completion request unless AI_SYSTEM_PROMPT overrides it.
	DefaultSystemPrompt = "你是一個友善搞笑幽默風趣的天才聊天助手。請使用繁體中文回答，並盡可能提供有趣和有見地的回應。"

	TitleMaxRunes    = 20
	TitleEllipsis    = "..."
	MaxMessageLength = 32000
	MaxTitleLength   = 255
)

const (
	AnalyzeSystemPrompt    = "你是一個有用的助手，負責分析文檔並回答問題。請使用繁體中文回答。"
	AnalyzeDefaultQuestion = "請分析這個文件並提供摘要"
	AnalyzeImagePrompt     = "請分析這張圖片並提供詳細描述。"
	AnalyzeMaxContentRunes = 4000
	AnalyzeMaxTokens       = 1000
	AnalyzeImageMaxTokens  = 500
)

// AllowedUploadExtensions lists accepted upload types, without the dot.
var AllowedUploadExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true,
	"jpeg": true, "gif": true, "doc": true, "docx": true,
}

var ImageMimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}
