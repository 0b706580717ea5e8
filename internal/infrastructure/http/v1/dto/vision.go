package dto

// AnalyzeImageRequest for the image analysis endpoints. The image comes
// in as base64, the way the register UI captures it.
type AnalyzeImageRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

// MarketingCopyRequest for POST /vision/marketing-copy.
type MarketingCopyRequest struct {
	ProductName    string `json:"productName" binding:"required"`
	TargetAudience string `json:"targetAudience"`
	Tone           string `json:"tone"`
}

// MarketingCopyResponse carries the generated text.
type MarketingCopyResponse struct {
	Text string `json:"text"`
}
