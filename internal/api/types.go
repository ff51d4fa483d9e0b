package api

// UploadResponse is the JSON body of a non-streamed /upload answer.
type UploadResponse struct {
	SessionID   string  `json:"session_id"`
	Message     string  `json:"message"`
	LLMResponse *string `json:"llm_response"`
}
