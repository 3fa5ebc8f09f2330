package tools

import "fmt"

// ResultState tracks a tool invocation inside one display message.
type ResultState string

const (
	ResultPending ResultState = "pending"
	ResultOK      ResultState = "ok"
	ResultFailed  ResultState = "failed"
)

// Recognized tool names as they appear in model output.
const (
	ToolGenerateImage    = "generate_image"
	ToolSendEmail        = "send_email"
	ToolFetchWeather     = "fetch_weather"
	ToolGenerateWebsite  = "generate_website"
	ToolCreateStoryboard = "create_storyboard"
)

// WeatherSnapshot is the weather card payload. Icon is the upstream 2-digit
// code plus day/night suffix, mapped to a style by the presentation layer.
type WeatherSnapshot struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// ImageRef points at a generated image.
type ImageRef struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// EmailReceipt is the outcome of an email send. The send is irreversible;
// there is no dispatcher-level retry.
type EmailReceipt struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ActionLaunch describes a generated artifact the client opens in a new
// surface (website preview, storyboard editor).
type ActionLaunch struct {
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Result is the dispatcher's patch for a display message. Exactly one of the
// typed fields is set for a successful dispatch; Detail carries the inline
// failure text otherwise.
type Result struct {
	Tool    string           `json:"tool"`
	State   ResultState      `json:"state"`
	Detail  string           `json:"detail,omitempty"`
	Weather *WeatherSnapshot `json:"weather,omitempty"`
	Image   *ImageRef        `json:"image,omitempty"`
	Email   *EmailReceipt    `json:"email,omitempty"`
	Launch  *ActionLaunch    `json:"launch,omitempty"`
}

// httpStatusError preserves the upstream status code so callers can classify
// the failure.
type httpStatusError struct {
	service string
	status  int
	body    string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%s: http status %d", e.service, e.status)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.service, e.status, e.body)
}

// HTTPStatus extracts the status code from an error produced by a tool
// client, or 0 when the error was not an HTTP failure.
func HTTPStatus(err error) int {
	if e, ok := err.(*httpStatusError); ok {
		return e.status
	}
	return 0
}
