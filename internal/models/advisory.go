package models

// AdvisoryReply is the body returned by the chat and weather endpoints.
type AdvisoryReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CropReport is the structured answer for a crop photo.
type CropReport struct {
	CropName        string `json:"crop_name"`
	GrowthStage     string `json:"growth_stage,omitempty"`
	HealthStatus    string `json:"health_status,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
	Description     string `json:"description,omitempty"`
	RawResponse     string `json:"raw_response,omitempty"`
}
