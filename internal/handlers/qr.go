package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	neturl "net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ttracx/vibe-qr-api/internal/qr"
	"github.com/ttracx/vibe-qr-api/internal/ratelimit"
	u "github.com/ttracx/vibe-qr-api/internal/utils"
)

// ServiceVersion is reported by the health and info endpoints.
const ServiceVersion = "1.0.0"

// GenerateRequest is the wire form shared by /generate, /generate-svg and
// bulk items. Vector output rejects the logo fields during validation.
type GenerateRequest struct {
	Data            string  `json:"data"`
	Size            int     `json:"size"`
	Version         int     `json:"version"`
	Border          *int    `json:"border"`
	Foreground      string  `json:"foreground"`
	Background      string  `json:"background"`
	ErrorCorrection string  `json:"error_correction"`
	ModuleStyle     string  `json:"module_style"`
	LogoURL         string  `json:"logo_url"`
	LogoSizeRatio   float64 `json:"logo_size_ratio"`
}

// BulkRequest is the wire form for /bulk.
type BulkRequest struct {
	Items []GenerateRequest `json:"items"`
}

// QRResponse is the success body for /generate.
type QRResponse struct {
	Success     bool   `json:"success"`
	ImageBase64 string `json:"image_base64"`
	Format      string `json:"format"`
	Size        int    `json:"size"`
}

// BulkItemResult is one positional outcome in a bulk response.
type BulkItemResult struct {
	Success     bool   `json:"success"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Format      string `json:"format,omitempty"`
	Size        int    `json:"size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BulkResponse is the body for /bulk. Results always match the input count
// and order.
type BulkResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Results []BulkItemResult `json:"results"`
}

// QRParams holds validated, normalized input for one generation.
type QRParams struct {
	Data      string
	Version   int
	Level     qr.Level
	Opts      qr.Options
	LogoURL   string
	LogoRatio float64
}

// QRService bundles configuration and dependencies for QR generation.
type QRService struct {
	Config  *u.Config
	Redis   *redis.Client
	Limiter *ratelimit.Limiter
}

// NewQRService creates a new QRService instance.
func NewQRService(cfg u.Config, rdb *redis.Client, limiter *ratelimit.Limiter) *QRService {
	return &QRService{
		Config:  &cfg, // convert value to pointer
		Redis:   rdb,
		Limiter: limiter,
	}
}

// CallerIdentity resolves the rate-limit identity and tier for a request.
// A validated X-API-Key makes the caller pro, keyed by the key itself;
// anonymous callers are free tier, keyed by client IP.
func CallerIdentity(c *fiber.Ctx) (string, ratelimit.Tier) {
	if key, ok := c.Locals("api_key").(string); ok && key != "" {
		return "key:" + key, ratelimit.TierPro
	}
	return "ip:" + c.IP(), ratelimit.TierFree
}

func setRateHeaders(c *fiber.Ctx, res ratelimit.Result) {
	if res.Limit < 0 {
		c.Set("X-RateLimit-Remaining", "unlimited")
		c.Set("X-RateLimit-Limit", "unlimited")
		return
	}
	c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
}

func (svc *QRService) denyRateLimited(c *fiber.Ctx, res ratelimit.Result) error {
	retryAfter := int(time.Until(res.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	setRateHeaders(c, res)
	c.Set("Retry-After", strconv.Itoa(retryAfter))
	u.Warn("Rate limit exceeded", "identity_tier", res.Tier.String(), "path", c.Path())
	return fiber.NewError(fiber.StatusTooManyRequests,
		fmt.Sprintf("Rate limit exceeded. Free tier allows %d requests per day. Upgrade to Pro for unlimited access.", res.Limit))
}

// decodeStrict parses a JSON body and rejects unknown or duplicate-typed
// fields instead of silently ignoring them.
func decodeStrict(c *fiber.Ctx, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return nil
}

// HandleGenerate serves POST /generate: a single PNG returned as base64.
func (svc *QRService) HandleGenerate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}

	identity, tier := CallerIdentity(c)
	res := svc.Limiter.Admit(identity, tier)
	if !res.Allowed {
		return svc.denyRateLimited(c, res)
	}
	setRateHeaders(c, res)

	params, err := svc.validateGenerateRequest(&req, rasterOutput)
	if err != nil {
		return toHTTPError(err)
	}

	pngBytes, err := svc.generatePNG(c.Context(), params)
	if err != nil {
		u.Warn("QR generation failed", "error", err.Error(), "request_id", c.Get("X-Request-ID"))
		return toHTTPError(err)
	}

	return c.JSON(QRResponse{
		Success:     true,
		ImageBase64: base64.StdEncoding.EncodeToString(pngBytes),
		Format:      "png",
		Size:        params.Opts.Size,
	})
}

// HandleGenerateSVG serves POST /generate-svg: raw SVG markup, never
// base64-wrapped. Logos embed a raster and are rejected on vector output.
func (svc *QRService) HandleGenerateSVG(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}

	identity, tier := CallerIdentity(c)
	res := svc.Limiter.Admit(identity, tier)
	if !res.Allowed {
		return svc.denyRateLimited(c, res)
	}
	setRateHeaders(c, res)

	params, err := svc.validateGenerateRequest(&req, vectorOutput)
	if err != nil {
		return toHTTPError(err)
	}

	grid, err := qr.Encode(params.Data, params.Level, params.Version)
	if err != nil {
		return toHTTPError(err)
	}
	markup, err := qr.RenderSVG(grid, params.Opts)
	if err != nil {
		return toHTTPError(err)
	}

	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.SendString(markup)
}

// HandleBulk serves POST /bulk: up to 50 items, each run through the full
// pipeline independently. One bad item never aborts the rest, and every
// item consumes one unit of quota.
func (svc *QRService) HandleBulk(c *fiber.Ctx) error {
	var req BulkRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}

	maxItems := svc.Config.QR.BulkMaxItems
	if len(req.Items) > maxItems {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Bulk request exceeds maximum of %d items", maxItems))
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Bulk request must contain at least one item")
	}

	identity, tier := CallerIdentity(c)
	results := svc.runBulk(c.Context(), identity, tier, req.Items)

	setRateHeaders(c, svc.Limiter.Peek(identity, tier))
	return c.JSON(BulkResponse{Success: true, Count: len(results), Results: results})
}

// runBulk fans the items out over a bounded worker pool. Results are
// written by index, so completion order never reorders the response.
func (svc *QRService) runBulk(ctx context.Context, identity string, tier ratelimit.Tier, items []GenerateRequest) []BulkItemResult {
	results := make([]BulkItemResult, len(items))
	sem := make(chan struct{}, svc.Config.QR.BulkWorkers)
	done := make(chan int)

	for i := range items {
		go func(i int) {
			sem <- struct{}{}
			defer func() { <-sem; done <- i }()
			results[i] = svc.bulkItem(ctx, identity, tier, &items[i])
		}(i)
	}
	for range items {
		<-done
	}
	return results
}

func (svc *QRService) bulkItem(ctx context.Context, identity string, tier ratelimit.Tier, item *GenerateRequest) BulkItemResult {
	if res := svc.Limiter.Admit(identity, tier); !res.Allowed {
		return BulkItemResult{Error: "rate limit exceeded"}
	}

	params, err := svc.validateGenerateRequest(item, rasterOutput)
	if err != nil {
		return BulkItemResult{Error: err.Error()}
	}
	pngBytes, err := svc.generatePNG(ctx, params)
	if err != nil {
		return BulkItemResult{Error: err.Error()}
	}
	return BulkItemResult{
		Success:     true,
		ImageBase64: base64.StdEncoding.EncodeToString(pngBytes),
		Format:      "png",
		Size:        params.Opts.Size,
	}
}

// generatePNG runs encode, render and optional logo compositing, serving
// cacheable renders from Redis when enabled. Only logo-less output is
// cached: the pipeline is deterministic, a remote logo is not.
func (svc *QRService) generatePNG(ctx context.Context, params *QRParams) ([]byte, error) {
	cacheable := params.LogoURL == "" && svc.Redis != nil && svc.Config.Cache.QRCacheEnabled
	cacheKey := ""
	if cacheable {
		cacheKey = computeQRCacheKey(params)
		if cached := svc.getCachedPNG(ctx, cacheKey); cached != nil {
			return cached, nil
		}
	}

	grid, err := qr.Encode(params.Data, params.Level, params.Version)
	if err != nil {
		return nil, err
	}

	img, err := qr.RenderImage(grid, params.Opts)
	if err != nil {
		return nil, err
	}

	if params.LogoURL != "" {
		timeout := time.Duration(svc.Config.QR.LogoTimeoutSecs) * time.Second
		logo, err := qr.FetchLogo(ctx, params.LogoURL, timeout)
		if err != nil {
			return nil, err
		}
		img, err = qr.CompositeLogo(img, logo, params.LogoRatio, params.Level)
		if err != nil {
			return nil, err
		}
	}

	pngBytes, err := qr.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	if cacheable {
		svc.setCachedPNG(ctx, cacheKey, pngBytes)
	}
	return pngBytes, nil
}

// vector distinguishes the two output paths in validateGenerateRequest.
const (
	rasterOutput = false
	vectorOutput = true
)

// validateGenerateRequest normalizes defaults and validates every field
// before any encoding work, reporting field-level reasons.
func (svc *QRService) validateGenerateRequest(req *GenerateRequest, vector bool) (*QRParams, error) {
	cfg := svc.Config

	if req.Data == "" {
		return nil, fmt.Errorf("data: %w", qr.ErrEmptyData)
	}
	if len([]rune(req.Data)) > cfg.Limits.MaxDataChars {
		return nil, fmt.Errorf("data: %w", qr.ErrDataTooLarge)
	}

	size := req.Size
	if size == 0 {
		size = cfg.QR.DefaultSize
	}
	if size < 50 || size > 2000 {
		return nil, fmt.Errorf("size: %w", qr.ErrInvalidSize)
	}

	if req.Version != 0 && (req.Version < 1 || req.Version > 40) {
		return nil, fmt.Errorf("version: %w", qr.ErrInvalidVersion)
	}

	border := cfg.QR.DefaultBorder
	if req.Border != nil {
		border = *req.Border
	}
	if border < 0 || border > 10 {
		return nil, fmt.Errorf("border: %w", qr.ErrInvalidBorder)
	}

	level, err := qr.ParseLevel(req.ErrorCorrection)
	if err != nil {
		return nil, fmt.Errorf("error_correction: %w", err)
	}

	style, err := qr.ParseStyle(req.ModuleStyle)
	if err != nil {
		return nil, fmt.Errorf("module_style: %w", err)
	}

	fg := color.RGBA{A: 255}                         // #000000
	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255} // #FFFFFF
	if req.Foreground != "" {
		if fg, err = qr.ParseHexColor(req.Foreground); err != nil {
			return nil, fmt.Errorf("foreground: %w", err)
		}
	}
	if req.Background != "" {
		if bg, err = qr.ParseHexColor(req.Background); err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
	}

	params := &QRParams{
		Data:    req.Data,
		Version: req.Version,
		Level:   level,
		Opts: qr.Options{
			Size:       size,
			Border:     border,
			Foreground: fg,
			Background: bg,
			Style:      style,
		},
	}

	if req.LogoURL != "" {
		if vector {
			return nil, fmt.Errorf("logo_url: %w", qr.ErrUnsupportedCombination)
		}
		parsed, err := neturl.ParseRequestURI(req.LogoURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, fmt.Errorf("logo_url: must be an HTTP or HTTPS URL")
		}
		ratio := req.LogoSizeRatio
		if ratio == 0 {
			ratio = 0.25
		}
		if err := qr.CheckLogoBudget(ratio, level); err != nil {
			return nil, fmt.Errorf("logo_size_ratio: %w", err)
		}
		params.LogoURL = req.LogoURL
		params.LogoRatio = ratio
	} else if req.LogoSizeRatio != 0 {
		if vector {
			return nil, fmt.Errorf("logo_size_ratio: %w", qr.ErrUnsupportedCombination)
		}
		if req.LogoSizeRatio < 0.1 || req.LogoSizeRatio > 0.4 {
			return nil, fmt.Errorf("logo_size_ratio: %w", qr.ErrInvalidRatio)
		}
	}

	return params, nil
}

// toHTTPError maps domain errors onto HTTP statuses for the single-item
// endpoints. Bulk items keep the raw messages inline instead.
func toHTTPError(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	status := fiber.StatusBadRequest
	if errors.Is(err, qr.ErrLogoFetchFailed) {
		status = fiber.StatusUnprocessableEntity
	}
	return fiber.NewError(status, err.Error())
}

// computeQRCacheKey creates a SHA256-based cache key from every input that
// affects the rendered bytes.
func computeQRCacheKey(params *QRParams) string {
	h := sha256.New()
	h.Write([]byte(params.Data))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d|%d|%d|%s|%s|%08x|%08x",
		params.Opts.Size, params.Version, params.Opts.Border,
		params.Level, params.Opts.Style,
		params.Opts.Foreground, params.Opts.Background)
	return "qrcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedPNG attempts to retrieve a cached render from Redis.
func (svc *QRService) getCachedPNG(ctx context.Context, key string) []byte {
	ctxRedis, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	cached, err := svc.Redis.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil
	}

	u.Info("QR cache hit", "key", key)
	return cached
}

// setCachedPNG stores a render in Redis.
func (svc *QRService) setCachedPNG(ctx context.Context, key string, data []byte) {
	ctxRedis, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	ttl := time.Duration(svc.Config.Cache.QRCacheTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := svc.Redis.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}
