package resolve

import (
	"fmt"
	"log/slog"

	"github.com/robertkozin/tiktok-direct-link/config"
	"github.com/robertkozin/tiktok-direct-link/extract"
)

// New builds a Handler and its extractor from cfg.
func New(cfg config.Config, logger *slog.Logger) (*Handler, error) {
	u, err := cfg.ExtractorURL()
	if err != nil {
		return nil, err
	}
	ex, err := extract.New(u, extract.NewHTTPClient(cfg.HTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}
	return &Handler{
		Extractor:      ex,
		Logger:         logger,
		Timeout:        cfg.ExtractTimeout,
		Format:         cfg.ExtractFormat,
		DefaultTitle:   cfg.DefaultTitle,
		SourcePatterns: cfg.SourcePatterns,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, nil
}
