package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aikonstudios/aikon/internal/reliability"
)

// ErrUnknownTool signals a payload whose name the dispatcher does not
// recognize. Callers fall back to displaying the raw model text.
var ErrUnknownTool = errors.New("unknown tool")

// Dispatcher executes recognized tool calls. At most one dispatch runs per
// turn, strictly after the model stream has been consumed or abandoned; side
// effects are irreversible and are never retried here.
type Dispatcher struct {
	weather   WeatherClient
	mailer    EmailSender
	generator Generator
	timeout   time.Duration
}

func NewDispatcher(weather WeatherClient, mailer EmailSender, generator Generator, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		weather:   weather,
		mailer:    mailer,
		generator: generator,
		timeout:   timeout,
	}
}

// Pending returns the loading placeholder projected while a dispatch is in
// flight.
func Pending(tool string) Result {
	return Result{Tool: tool, State: ResultPending}
}

// Dispatch runs one tool call to completion under the configured timeout and
// returns the message patch. A failed call yields a Result in state
// ResultFailed with an inline detail; only an unrecognized name returns
// ErrUnknownTool.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch name {
	case ToolFetchWeather:
		return d.fetchWeather(ctx, args), nil
	case ToolSendEmail:
		return d.sendEmail(ctx, args), nil
	case ToolGenerateImage:
		return d.generateImage(ctx, args), nil
	case ToolGenerateWebsite:
		return d.generateWebsite(ctx, args), nil
	case ToolCreateStoryboard:
		return d.createStoryboard(ctx, args), nil
	default:
		log.Printf("tool dispatch: unknown tool %q", name)
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func (d *Dispatcher) fetchWeather(ctx context.Context, args map[string]any) Result {
	city := stringArg(args, "location", "city")
	snap, err := d.weather.Current(ctx, city)
	if err != nil {
		return failure(ToolFetchWeather, "weather lookup failed", err)
	}
	return Result{Tool: ToolFetchWeather, State: ResultOK, Weather: &snap}
}

func (d *Dispatcher) sendEmail(ctx context.Context, args map[string]any) Result {
	msg := OutboundEmail{
		To:      stringArg(args, "to", "recipient"),
		Subject: stringArg(args, "subject"),
		Body:    stringArg(args, "body", "message"),
	}
	receipt, err := d.mailer.Send(ctx, msg)
	if err != nil {
		return failure(ToolSendEmail, "email send failed", err)
	}
	return Result{Tool: ToolSendEmail, State: ResultOK, Email: &receipt}
}

func (d *Dispatcher) generateImage(ctx context.Context, args map[string]any) Result {
	prompt := stringArg(args, "prompt", "description")
	ref, err := d.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return failure(ToolGenerateImage, "image generation failed", err)
	}
	if strings.TrimSpace(ref.URL) == "" {
		// A nil/empty reference from the generator counts as a failure.
		return Result{Tool: ToolGenerateImage, State: ResultFailed, Detail: "image generation failed"}
	}
	return Result{Tool: ToolGenerateImage, State: ResultOK, Image: &ref}
}

func (d *Dispatcher) generateWebsite(ctx context.Context, args map[string]any) Result {
	brief := stringArg(args, "prompt", "brief", "description")
	launch, err := d.generator.GenerateWebsite(ctx, brief)
	if err != nil {
		return failure(ToolGenerateWebsite, "website generation failed", err)
	}
	if strings.TrimSpace(launch.URL) == "" {
		return Result{Tool: ToolGenerateWebsite, State: ResultFailed, Detail: "website generation failed"}
	}
	return Result{Tool: ToolGenerateWebsite, State: ResultOK, Launch: &launch}
}

func (d *Dispatcher) createStoryboard(ctx context.Context, args map[string]any) Result {
	brief := stringArg(args, "prompt", "brief", "description")
	launch, err := d.generator.CreateStoryboard(ctx, brief)
	if err != nil {
		return failure(ToolCreateStoryboard, "storyboard creation failed", err)
	}
	if strings.TrimSpace(launch.URL) == "" {
		return Result{Tool: ToolCreateStoryboard, State: ResultFailed, Detail: "storyboard creation failed"}
	}
	return Result{Tool: ToolCreateStoryboard, State: ResultOK, Launch: &launch}
}

func failure(tool, summary string, err error) Result {
	detail := summary
	if errors.Is(err, context.DeadlineExceeded) {
		detail = summary + ": timed out"
	} else if status := HTTPStatus(err); status != 0 && reliability.IsRetryableHTTPStatus(status) {
		detail = summary + ": service temporarily unavailable"
	}
	log.Printf("tool dispatch: %s: %v", tool, err)
	return Result{Tool: tool, State: ResultFailed, Detail: detail}
}

func stringArg(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
