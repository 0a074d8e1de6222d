package request_models

type CreateGenerationRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	MimeType    string `json:"mime_type" binding:"required,oneof=image/jpeg image/png image/webp"`
	Prompt      string `json:"prompt" binding:"max=2000"`
	SessionID   string `json:"session_id" binding:"max=128"`
}

type PageQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}
