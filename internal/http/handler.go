package http

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"boardsight/internal/core"
	"boardsight/internal/processor"
	"boardsight/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	rateLimitRate = 10               // req/sec
	bodyLimit     = 10 * 1024 * 1024 // data URI images
)

type Options struct {
	DevMode   bool
	AccessLog io.Writer // defaults to stdout
}

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, opts Options) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // resolve + evaluate may retry vision
		IdleTimeout:  60 * time.Second,
	})

	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
		Output: accessLog,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit, no auth)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")
	api.Get("/health", h.Health)

	maxReq := rateLimitRate
	if opts.DevMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrCodeRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	if svc.AuthEnabled() {
		api.Use(AuthRequired(svc.ValidateToken))
	}

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/positions/validate", h.ValidatePosition)
	api.Post("/positions/resolve", h.ResolvePosition)
	api.Post("/moves/select", h.SelectMove)
	api.Post("/analyze", h.Analyze)
	api.Get("/captures/:captureId", h.GetCapture)

	return app
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrCodeInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed, fiber.StatusBadRequest,
			fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			response.Code = core.ErrCodeInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrCodeRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps an API error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrCodeInvalidRequest, core.ErrCodePositionInvalid:
		return fiber.StatusBadRequest
	case core.ErrCodeRecoveryExhausted, core.ErrCodeNoCandidate:
		return fiber.StatusUnprocessableEntity
	case core.ErrCodeRateLimited:
		return fiber.StatusTooManyRequests
	case core.ErrCodeEngineUnavailable:
		return fiber.StatusBadGateway
	case core.ErrCodeCaptureNotFound:
		return fiber.StatusNotFound
	case core.ErrCodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// writeFailure renders a failed processor response, preferring a partial result body
func writeFailure(c *fiber.Ctx, resp processor.ProcessorResponse) error {
	if resp.Error.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.Error.RetryAfter))
	}
	c.Status(statusFor(resp.Error.Code))
	if resp.Data != nil {
		return c.JSON(resp.Data)
	}
	return c.JSON(resp.Error)
}

// Health check endpoint with storage and evaluation status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	state := h.proc.LimiterState()
	evaluation := fiber.Map{"coolingDown": time.Now().Before(state.BackoffUntil)}
	if !state.BackoffUntil.IsZero() {
		evaluation["backoffUntil"] = state.BackoffUntil.UTC()
	}
	return c.JSON(fiber.Map{
		"status":     "healthy",
		"time":       time.Now().Unix(),
		"storage":    h.svc.GetStorageHealth(),
		"evaluation": evaluation,
	})
}

// ValidatePosition checks a board encoding or piece list
func (h *HTTPHandler) ValidatePosition(c *fiber.Ctx) error {
	req, err := validatedBody[core.ValidatePositionRequest](c)
	if req == nil {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewValidatePositionCommand(*req))
	if !resp.Success {
		return writeFailure(c, resp)
	}
	return c.JSON(resp.Data)
}

// ResolvePosition turns a page reading and/or image into a validated position
func (h *HTTPHandler) ResolvePosition(c *fiber.Ctx) error {
	req, err := validatedBody[core.ResolvePositionRequest](c)
	if req == nil {
		return err
	}
	if req.PageReading == nil && req.ImageRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error: "pageReading or imageRef required",
			Code:  core.ErrCodeInvalidRequest,
		})
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewResolvePositionCommand(*req))
	if !resp.Success {
		return writeFailure(c, resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Data)
}

// SelectMove samples a human-plausible move from posted candidates
func (h *HTTPHandler) SelectMove(c *fiber.Ctx) error {
	req, err := validatedBody[core.SelectMoveRequest](c)
	if req == nil {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewSelectMoveCommand(*req))
	if !resp.Success {
		return writeFailure(c, resp)
	}
	return c.JSON(resp.Data)
}

// Analyze resolves, evaluates and selects in one request
func (h *HTTPHandler) Analyze(c *fiber.Ctx) error {
	req, err := validatedBody[core.AnalyzeRequest](c)
	if req == nil {
		return err
	}
	if req.PageReading == nil && req.ImageRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error: "pageReading or imageRef required",
			Code:  core.ErrCodeInvalidRequest,
		})
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewAnalyzeCommand(*req))
	if !resp.Success {
		return writeFailure(c, resp)
	}
	return c.JSON(resp.Data)
}

// GetCapture returns a persisted capture with its selections
func (h *HTTPHandler) GetCapture(c *fiber.Ctx) error {
	captureID := c.Params("captureId")

	if !isValidUUID(captureID) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid capture ID format",
			Code:    core.ErrCodeInvalidRequest,
			Details: "capture ID must be a valid UUID",
		})
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewGetCaptureCommand(captureID))
	if !resp.Success {
		return writeFailure(c, resp)
	}
	return c.JSON(resp.Data)
}
