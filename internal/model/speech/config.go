package speech

// SpeechConfig 语音识别配置
type SpeechConfig struct {
	// Volcengine 凭证
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置
	Region         string `json:"region"`
	BaseURL        string `json:"baseUrl"`        // 为空时使用官方 ASR 端点
	ConcurrentMode bool   `json:"concurrentMode"` // false 为小时版

	ASRModel    string `json:"asrModel"`
	ASRLanguage string `json:"asrLanguage"`

	Timeout        int `json:"timeout"`        // seconds
	CaptureSeconds int `json:"captureSeconds"` // 单次录音窗口
}
