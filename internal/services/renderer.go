package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
	"go.uber.org/zap"
)

// Card layout in template pixels
const (
	photoX      = 104
	photoY      = 32
	photoWidth  = 481
	photoHeight = 477

	fieldFontSize  = 46
	footerFontSize = 18

	fieldX        = 680
	fieldBaseline = 100
	fieldSpacing  = 100

	serialX = 680
	issuedX = 103
	footerY = 540
)

// CardData is everything drawn on one card
type CardData struct {
	Nickname string
	Fields   models.DocumentFields
	Photo    []byte
	Serial   string
	IssuedOn string
}

// CardRenderer composites a card image and returns it PNG encoded
type CardRenderer interface {
	Render(ctx context.Context, data CardData) ([]byte, error)
}

// ImageRenderer draws cards over a fixed template image
type ImageRenderer struct {
	template image.Image

	// opentype faces cache glyphs and are not safe for concurrent use
	mu         sync.Mutex
	fieldFace  font.Face
	footerFace font.Face

	logger *logging.SafeLogger
}

// NewImageRenderer loads the template from templatePath and the font from
// fontPath. An empty fontPath uses Go Regular.
func NewImageRenderer(templatePath, fontPath string, logger *logging.SafeLogger) (*ImageRenderer, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}
	template, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %v", models.ErrDecode, templatePath, err)
	}

	fontData := goregular.TTF
	if fontPath != "" {
		if fontData, err = os.ReadFile(fontPath); err != nil {
			return nil, fmt.Errorf("failed to read font %s: %w", fontPath, err)
		}
	}

	renderer, err := NewImageRendererFromTemplate(template, fontData, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("card renderer ready",
		zap.String("template", templatePath),
		zap.String("font", fontPathOrDefault(fontPath)),
		zap.Int("width", template.Bounds().Dx()),
		zap.Int("height", template.Bounds().Dy()),
	)
	return renderer, nil
}

func fontPathOrDefault(path string) string {
	if path == "" {
		return "goregular"
	}
	return path
}

// NewImageRendererFromTemplate builds a renderer from an already decoded
// template and raw TTF/OTF data.
func NewImageRendererFromTemplate(template image.Image, fontData []byte, logger *logging.SafeLogger) (*ImageRenderer, error) {
	parsed, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	fieldFace, err := newFace(parsed, fieldFontSize)
	if err != nil {
		return nil, err
	}
	footerFace, err := newFace(parsed, footerFontSize)
	if err != nil {
		return nil, err
	}

	return &ImageRenderer{
		template:   template,
		fieldFace:  fieldFace,
		footerFace: footerFace,
		logger:     logger,
	}, nil
}

// newFace sizes are in pixels, hence 72 DPI
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %.0fpx font face: %w", size, err)
	}
	return face, nil
}

// Render draws the photo and text over a copy of the template
func (r *ImageRenderer) Render(ctx context.Context, data CardData) ([]byte, error) {
	start := time.Now()
	_, span := utils.TraceBusinessLogic(ctx, "render_card")
	defer span.End()
	utils.AddSpanAttribute(span, "card.nickname", data.Nickname)
	utils.AddSpanAttribute(span, "card.photo_bytes", len(data.Photo))

	photo, _, err := image.Decode(bytes.NewReader(data.Photo))
	if err != nil {
		err = fmt.Errorf("%w: photo for %s: %v", models.ErrDecode, data.Nickname, err)
		utils.RecordErrorInSpan(span, err, nil)
		return nil, err
	}

	bounds := r.template.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, r.template, bounds.Min, draw.Src)

	photoRect := image.Rect(photoX, photoY, photoX+photoWidth, photoY+photoHeight).Add(bounds.Min)
	xdraw.ApproxBiLinear.Scale(canvas, photoRect, photo, photo.Bounds(), draw.Over, nil)

	lines := []string{
		"Nome: " + data.Nickname,
		"RG: " + data.Fields.IDNumber,
		"Porte: " + data.Fields.CarryPermit,
		"Habilitação: " + data.Fields.License,
		"Nascimento: " + data.Fields.BirthDate,
	}

	r.mu.Lock()
	for i, line := range lines {
		drawText(canvas, r.fieldFace, line, bounds.Min.X+fieldX, bounds.Min.Y+fieldBaseline+i*fieldSpacing)
	}
	drawText(canvas, r.footerFace, "UUID: "+data.Serial, bounds.Min.X+serialX, bounds.Min.Y+footerY)
	drawText(canvas, r.footerFace, "Expedição: "+data.IssuedOn, bounds.Min.X+issuedX, bounds.Min.Y+footerY)
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}

	observability.RenderDuration.Observe(time.Since(start).Seconds())
	return buf.Bytes(), nil
}

// drawText writes s in black with its baseline at (x, y)
func drawText(dst draw.Image, face font.Face, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
