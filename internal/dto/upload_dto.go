package dto

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

type AnalyzeRequest struct {
	Question string `json:"question" validate:"max=2000"`
}

type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}
