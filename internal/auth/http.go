package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// postJSON sends payload to url and returns the status code and body.
func postJSON(url string, payload interface{}, bearer string, timeout time.Duration) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	agent := fiber.Post(url).
		Body(raw).
		ContentType(fiber.MIMEApplicationJSON).
		Timeout(timeout)
	if bearer != "" {
		agent = agent.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("POST %s: %w", url, errs[0])
	}
	return code, body, nil
}
